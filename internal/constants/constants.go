// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort          = "8090"
	DefaultDBPath        = "cratekeeper.db"
	DefaultEagleURL      = "http://127.0.0.1:41595"
	DefaultNotionBaseURL = "https://api.notion.com/v1"
	DefaultConcurrency   = 3
	DefaultHTTPTimeout   = 30 * time.Second
	DefaultRetryCount    = 3
	DefaultRetryBase     = 1 * time.Second
	DefaultCatalogTTL    = 5 * time.Minute
	DefaultCacheTTL      = 12 * time.Hour
	DefaultTargetLUFS    = -14.0
	DefaultTruePeak      = -1.0
)

// Notion API
const (
	NotionVersion      = "2022-06-28"
	NotionMinInterval  = 350 * time.Millisecond
	NotionPageSize     = 100
	NotionTextFieldCap = 2000
	DedupeWindowSize   = 300
)

// Eagle API
const (
	EagleListLimit   = 100000
	EagleMinInterval = 50 * time.Millisecond
)

// Tag conventions on catalog entries. Structured data rides on plain Eagle
// tags as "<prefix><value>" strings.
const (
	FingerprintTagPrefix = "fp:"
	FingerprintTagLen    = 16
	DurationTagPrefix    = "dur:"
	BPMTagPrefix         = "BPM"
)

// File extensions
const (
	ExtAIFF = ".aiff"
	ExtM4A  = ".m4a"
	ExtWAV  = ".wav"
	ExtMP3  = ".mp3"
	ExtFLAC = ".flac"
)

// MIME types
const (
	MimeTypeM4A  = "audio/mp4"
	MimeTypeMP3  = "audio/mpeg"
	MimeTypeFLAC = "audio/flac"
	MimeTypeJPEG = "image/jpeg"
)

// File permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// Characters to sanitize from filesystem paths
const InvalidPathChars = "<>:\"/\\|?*"
