package dedupe

import (
	"cratekeeper/internal/domain"
	"cratekeeper/internal/notion"
	"cratekeeper/internal/textnorm"
)

// Property names of the tracks database schema.
const (
	propName        = "Name"
	propArtist      = "Artist"
	propAlbum       = "Album"
	propGenre       = "Genre"
	propSourceURL   = "Source URL"
	propPlatform    = "Platform"
	propPlatformID  = "Platform ID"
	propBPM         = "BPM"
	propKey         = "Key"
	propDurationSec = "Duration (s)"
	propLUFS        = "LUFS"
	propFingerprint = "Fingerprint"
	propEagleID     = "Eagle ID"
	propWAVPath     = "WAV Path"
	propAIFFPath    = "AIFF Path"
	propM4APath     = "M4A Path"
	propMP3Path     = "MP3 Path"
	propFLACPath    = "FLAC Path"
	propComplete    = "Download Complete"
)

var formatPathProps = map[string]string{
	"wav":  propWAVPath,
	"aiff": propAIFFPath,
	"m4a":  propM4APath,
	"mp3":  propMP3Path,
	"flac": propFLACPath,
}

// TrackProperties maps a processed track onto the tracks database schema.
func TrackProperties(t *domain.Track) map[string]notion.Property {
	props := map[string]notion.Property{
		propName:      notion.Title(t.DisplayName()),
		propArtist:    notion.RichText(t.Artist),
		propAlbum:     notion.RichText(t.Album),
		propSourceURL: notion.URL(t.SourceURL),
		propPlatform:  notion.Select(t.Platform),
		propComplete:  notion.Checkbox(t.Status == domain.TrackStatusCompleted),
	}
	if t.Genre != "" {
		props[propGenre] = notion.MultiSelect(t.Genre)
	}
	if t.PlatformID != "" {
		props[propPlatformID] = notion.RichText(t.PlatformID)
	}
	if t.BPM > 0 {
		props[propBPM] = notion.Number(float64(t.BPM))
	}
	if t.Key != "" && t.Key != "Unknown" {
		props[propKey] = notion.Select(t.Key)
	}
	if t.DurationSec > 0 {
		props[propDurationSec] = notion.Number(float64(t.DurationSec))
	}
	if t.LUFS != 0 {
		props[propLUFS] = notion.Number(t.LUFS)
	}
	if t.Fingerprint != "" {
		props[propFingerprint] = notion.RichText(t.Fingerprint)
	}
	if t.EagleID != "" {
		props[propEagleID] = notion.RichText(t.EagleID)
	}
	for format, path := range t.Paths {
		if prop, ok := formatPathProps[format]; ok && path != "" {
			props[prop] = notion.RichText(path)
		}
	}
	return props
}

// record is one tracks-database page with its equality keys precomputed for
// group discovery.
type record struct {
	page       notion.Page
	sourceURL  string
	platformID string
	cleanTitle string
}

func newRecord(page notion.Page) record {
	rec := record{page: page}

	if p, ok := page.Properties[propSourceURL]; ok && p.Text != "" {
		rec.sourceURL = domain.NormalizeSourceURL(p.Text)
	}
	if p, ok := page.Properties[propPlatformID]; ok {
		rec.platformID = p.Text
	}
	if p, ok := page.Properties[propName]; ok {
		rec.cleanTitle = textnorm.Normalize(p.Text)
	}
	return rec
}

// keeperScore ranks a record's fitness to survive a merge: produced files
// and external ids weigh most, a completed download breaks near-ties.
// Deterministic and independent of edit timestamps; recency is only the
// final tie-break, applied by the caller.
func keeperScore(page notion.Page) int {
	score := 0
	for _, prop := range []string{propWAVPath, propAIFFPath, propM4APath} {
		if p, ok := page.Properties[prop]; ok && p.Text != "" {
			score += 2
		}
	}
	if p, ok := page.Properties[propEagleID]; ok && p.Text != "" {
		score += 5
	}
	if p, ok := page.Properties[propFingerprint]; ok && p.Text != "" {
		score += 2
	}
	if p, ok := page.Properties[propComplete]; ok && p.Checkbox {
		score++
	}
	return score
}

// mergeProperty reconciles one property between keeper and donor. Total for
// every supported kind: set-like kinds union, text kinds keep the longer
// value, scalar kinds keep the non-empty value, and when both sides carry a
// value the more recently edited side wins.
func mergeProperty(keeper, donor notion.Property, donorNewer bool) notion.Property {
	if keeper.Kind == "" {
		return donor
	}
	if donor.Kind == "" || donor.IsEmpty() {
		return keeper
	}
	if keeper.IsEmpty() {
		return donor
	}

	switch keeper.Kind {
	case notion.KindMultiSelect, notion.KindRelation:
		merged := keeper
		seen := make(map[string]bool, len(keeper.Values))
		for _, v := range keeper.Values {
			seen[v] = true
		}
		for _, v := range donor.Values {
			if !seen[v] {
				merged.Values = append(merged.Values, v)
				seen[v] = true
			}
		}
		return merged
	case notion.KindTitle, notion.KindRichText:
		if len(donor.Text) > len(keeper.Text) {
			return donor
		}
		return keeper
	case notion.KindCheckbox:
		merged := keeper
		merged.Checkbox = keeper.Checkbox || donor.Checkbox
		return merged
	default:
		// url, select, number, date: both carry a value, recency decides.
		if donorNewer {
			return donor
		}
		return keeper
	}
}
