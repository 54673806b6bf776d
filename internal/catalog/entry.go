// Package catalog models entries of the Eagle library and maintains an
// in-process, time-bound index over them for O(1) candidate lookup.
package catalog

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cratekeeper/internal/constants"
	"cratekeeper/internal/eagle"
	"cratekeeper/internal/fingerprint"
)

// Entry represents one file known to the catalog service.
type Entry struct {
	ID         string
	Name       string
	Path       string
	SourceURL  string
	Tags       []string
	Size       int64
	ModifiedAt time.Time
	Info       EntryInfo
}

// EntryInfo is the structured data extracted once from an entry's tag
// strings, so downstream scoring never re-parses raw tags.
type EntryInfo struct {
	Fingerprint string // truncated digest from the fp: tag, lowercase hex
	BPM         int
	DurationSec int
	Key         string
}

var (
	keyTagRegex     = regexp.MustCompile(`^[A-Ga-g][#b]? (?i:major|minor)$`)
	camelotTagRegex = regexp.MustCompile(`^(1[0-2]|[1-9])[ABab]$`)
	bpmTagRegex     = regexp.MustCompile(`^BPM\s?(\d{2,3})$`)
	formatTags      = map[string]struct{}{
		"aiff": {}, "m4a": {}, "wav": {}, "mp3": {}, "flac": {},
		"lossless": {}, "normalized": {},
	}
)

// FromItem converts an Eagle API item into a catalog Entry, parsing its
// structured tags.
func FromItem(item eagle.Item) Entry {
	return Entry{
		ID:         item.ID,
		Name:       item.Name,
		Path:       item.FilePath,
		SourceURL:  item.URL,
		Tags:       item.Tags,
		Size:       item.Size,
		ModifiedAt: time.UnixMilli(item.ModificationTime),
		Info:       ParseEntryTags(item.Tags),
	}
}

// ParseEntryTags extracts the structured values riding on the flat tag list.
func ParseEntryTags(tags []string) EntryInfo {
	var info EntryInfo
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if fp, ok := fingerprint.ParseTag(tag); ok {
			info.Fingerprint = fp
			continue
		}
		if strings.HasPrefix(tag, constants.DurationTagPrefix) {
			if v, err := strconv.Atoi(strings.TrimPrefix(tag, constants.DurationTagPrefix)); err == nil && v > 0 {
				info.DurationSec = v
			}
			continue
		}
		if m := bpmTagRegex.FindStringSubmatch(tag); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil {
				info.BPM = v
			}
			continue
		}
		if IsKeyTag(tag) {
			info.Key = tag
		}
	}
	return info
}

// IsKeyTag reports whether a tag names a musical key, in either traditional
// ("G Major") or Camelot ("8A") notation.
func IsKeyTag(tag string) bool {
	return keyTagRegex.MatchString(tag) || camelotTagRegex.MatchString(tag)
}

// IsStructuredTag reports whether a tag encodes structured data (fingerprint,
// BPM, duration, key, format markers) rather than free text such as an
// artist name. These are excluded from artist similarity scoring.
func IsStructuredTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return true
	}
	if strings.HasPrefix(tag, constants.FingerprintTagPrefix) ||
		strings.HasPrefix(tag, constants.DurationTagPrefix) ||
		bpmTagRegex.MatchString(tag) ||
		IsKeyTag(tag) {
		return true
	}
	_, isFormat := formatTags[strings.ToLower(tag)]
	return isFormat
}

// BuildTags renders structured values back into the flat tag convention used
// on catalog entries. Zero values are omitted.
func BuildTags(fullFingerprint string, bpm, durationSec int, key string, extra ...string) []string {
	var tags []string
	if fullFingerprint != "" {
		tags = append(tags, fingerprint.Tag(fullFingerprint))
	}
	if bpm > 0 {
		tags = append(tags, constants.BPMTagPrefix+strconv.Itoa(bpm))
	}
	if durationSec > 0 {
		tags = append(tags, constants.DurationTagPrefix+strconv.Itoa(durationSec))
	}
	if key != "" && !strings.EqualFold(key, "Unknown") {
		tags = append(tags, key)
	}
	for _, t := range extra {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// MergeTags unions fresh tags into existing ones, replacing stale structured
// values (a new fp:/BPM/dur: tag supersedes an old one of the same kind) and
// preserving free-text tags. Order is stable: existing first, then additions.
func MergeTags(existing, fresh []string) []string {
	kindOf := func(tag string) string {
		switch {
		case strings.HasPrefix(tag, constants.FingerprintTagPrefix):
			return "fp"
		case strings.HasPrefix(tag, constants.DurationTagPrefix):
			return "dur"
		case bpmTagRegex.MatchString(tag):
			return "bpm"
		case IsKeyTag(tag):
			return "key"
		default:
			return ""
		}
	}

	freshKinds := make(map[string]struct{})
	for _, t := range fresh {
		if k := kindOf(t); k != "" {
			freshKinds[k] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	for _, t := range existing {
		if k := kindOf(t); k != "" {
			if _, replaced := freshKinds[k]; replaced {
				continue
			}
		}
		add(t)
	}
	for _, t := range fresh {
		add(t)
	}
	return out
}
