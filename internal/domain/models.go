// Package domain holds the core data model shared by the pipeline, the
// journal store and the duplicate resolver.
package domain

import (
	"net/url"
	"strings"
	"time"
)

// TrackStatus represents where a track sits in the processing pipeline.
type TrackStatus string

const (
	TrackStatusQueued      TrackStatus = "queued"
	TrackStatusDownloading TrackStatus = "downloading"
	TrackStatusProcessing  TrackStatus = "processing"
	TrackStatusCompleted   TrackStatus = "completed"
	TrackStatusDuplicate   TrackStatus = "duplicate"
	TrackStatusFailed      TrackStatus = "failed"
)

// Track is one source track moving through the pipeline, from the original
// platform URL through produced files, extracted audio features, and the
// ids assigned by the catalog and metadata store.
type Track struct {
	ID          string      `json:"id" db:"id"`
	SourceURL   string      `json:"source_url" db:"source_url"`
	Platform    string      `json:"platform" db:"platform"`
	PlatformID  string      `json:"platform_id" db:"platform_id"`
	Title       string      `json:"title" db:"title"`
	Artist      string      `json:"artist" db:"artist"`
	Album       string      `json:"album,omitempty" db:"album"`
	Genre       string      `json:"genre,omitempty" db:"genre"`
	BPM         int         `json:"bpm,omitempty" db:"bpm"`
	Key         string      `json:"key,omitempty" db:"key_name"`
	DurationSec int         `json:"duration_sec" db:"duration_sec"`
	LUFS        float64     `json:"lufs,omitempty" db:"lufs"`
	Fingerprint string      `json:"fingerprint,omitempty" db:"fingerprint"`
	Paths       StringMap   `json:"paths,omitempty" db:"paths"`
	EagleID     string      `json:"eagle_id,omitempty" db:"eagle_id"`
	NotionID    string      `json:"notion_id,omitempty" db:"notion_id"`
	Status      TrackStatus `json:"status" db:"status"`
	Error       string      `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
}

// DisplayName is the "Artist - Title" form used for catalog entry names and
// produced filenames.
func (t *Track) DisplayName() string {
	if t.Artist != "" && t.Title != "" {
		return t.Artist + " - " + t.Title
	}
	if t.Title != "" {
		return t.Title
	}
	return t.SourceURL
}

// Normalize ensures the track data is consistent before persisting.
func (t *Track) Normalize() {
	t.SourceURL = strings.TrimSpace(t.SourceURL)
	if t.Platform == "" {
		t.Platform = PlatformFromURL(t.SourceURL)
	}
	if t.PlatformID == "" {
		t.PlatformID = PlatformID(t.SourceURL)
	}
	if t.Genre != "" {
		t.Genre = strings.ToLower(t.Genre)
	}
}

// PlatformFromURL identifies the source streaming platform.
func PlatformFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "unknown"
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	switch {
	case strings.HasSuffix(host, "soundcloud.com"):
		return "soundcloud"
	case strings.HasSuffix(host, "youtube.com"), host == "youtu.be":
		return "youtube"
	case strings.HasSuffix(host, "spotify.com"):
		return "spotify"
	default:
		return "unknown"
	}
}

// PlatformID extracts the platform-native resource identifier from a source
// URL: the video id for YouTube, the track id for Spotify, the user/slug
// path for SoundCloud. Empty when nothing identifiable is present.
func PlatformID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	path := strings.Trim(u.Path, "/")
	switch {
	case host == "youtu.be":
		return path
	case strings.HasSuffix(host, "youtube.com"):
		return u.Query().Get("v")
	case strings.HasSuffix(host, "spotify.com"):
		if rest, ok := strings.CutPrefix(path, "track/"); ok {
			id, _, _ := strings.Cut(rest, "/")
			return id
		}
		return ""
	case strings.HasSuffix(host, "soundcloud.com"):
		return strings.ToLower(path)
	default:
		return ""
	}
}

// NormalizeSourceURL canonicalizes a platform URL for equality comparison:
// scheme and www are dropped, the host is lowercased, query strings and
// fragments and trailing slashes are stripped. YouTube URLs keep the video
// id, since it lives in the query string.
func NormalizeSourceURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return strings.ToLower(strings.TrimRight(raw, "/"))
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))

	if host == "youtu.be" {
		return "youtube.com/watch?v=" + strings.Trim(u.Path, "/")
	}
	if strings.HasSuffix(host, "youtube.com") {
		if v := u.Query().Get("v"); v != "" {
			return "youtube.com/watch?v=" + v
		}
	}

	return host + strings.ToLower(strings.TrimRight(u.Path, "/"))
}
