package catalog_test

import (
	"reflect"
	"testing"

	"cratekeeper/internal/catalog"
)

func TestParseEntryTags(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want catalog.EntryInfo
	}{
		{
			name: "full_set",
			tags: []string{"fp:abcdef0123456789", "BPM120", "dur:183", "G Major", "techno"},
			want: catalog.EntryInfo{Fingerprint: "abcdef0123456789", BPM: 120, DurationSec: 183, Key: "G Major"},
		},
		{
			name: "camelot_key",
			tags: []string{"8A"},
			want: catalog.EntryInfo{Key: "8A"},
		},
		{
			name: "bpm_with_space",
			tags: []string{"BPM 98"},
			want: catalog.EntryInfo{BPM: 98},
		},
		{
			name: "free_text_only",
			tags: []string{"Boards of Canada", "downtempo"},
			want: catalog.EntryInfo{},
		},
		{
			name: "garbage_duration_ignored",
			tags: []string{"dur:abc"},
			want: catalog.EntryInfo{},
		},
		{
			name: "empty",
			tags: nil,
			want: catalog.EntryInfo{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := catalog.ParseEntryTags(tt.tags)
			if got != tt.want {
				t.Errorf("ParseEntryTags(%v) = %+v, want %+v", tt.tags, got, tt.want)
			}
		})
	}
}

func TestIsStructuredTag(t *testing.T) {
	structured := []string{"fp:abc123", "BPM128", "dur:200", "G Major", "a minor", "12B", "aiff", "Lossless"}
	for _, tag := range structured {
		if !catalog.IsStructuredTag(tag) {
			t.Errorf("expected %q to be structured", tag)
		}
	}

	freeText := []string{"Aphex Twin", "ambient", "favorites 2024"}
	for _, tag := range freeText {
		if catalog.IsStructuredTag(tag) {
			t.Errorf("expected %q to be free text", tag)
		}
	}
}

func TestBuildTags(t *testing.T) {
	tags := catalog.BuildTags(
		"abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789",
		128, 245, "A Minor", "melodic techno",
	)
	want := []string{"fp:abcdef0123456789", "BPM128", "dur:245", "A Minor", "melodic techno"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("BuildTags = %v, want %v", tags, want)
	}

	t.Run("unknown_key_omitted", func(t *testing.T) {
		tags := catalog.BuildTags("", 0, 0, "Unknown")
		if len(tags) != 0 {
			t.Errorf("expected no tags, got %v", tags)
		}
	})
}

func TestMergeTags(t *testing.T) {
	existing := []string{"fp:oldoldoldoldold1", "BPM120", "My Crate", "G Major"}
	fresh := []string{"fp:newnewnewnewnew1", "BPM124", "dur:180"}

	got := catalog.MergeTags(existing, fresh)
	want := []string{"My Crate", "G Major", "fp:newnewnewnewnew1", "BPM124", "dur:180"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeTags = %v, want %v", got, want)
	}

	t.Run("idempotent", func(t *testing.T) {
		again := catalog.MergeTags(got, fresh)
		if !reflect.DeepEqual(again, got) {
			t.Errorf("second merge changed tags: %v vs %v", again, got)
		}
	})
}
