package domain

import "testing"

func TestNormalizeSourceURL(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{
			name: "trailing slash",
			a:    "https://soundcloud.com/x/y",
			b:    "https://soundcloud.com/x/y/",
		},
		{
			name: "query string",
			a:    "https://soundcloud.com/x/y",
			b:    "https://soundcloud.com/x/y?in=someone/sets/mix",
		},
		{
			name: "www and scheme",
			a:    "http://www.soundcloud.com/x/y",
			b:    "https://soundcloud.com/x/y",
		},
		{
			name: "youtube short link",
			a:    "https://youtu.be/dQw4w9WgXcQ",
			b:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if na, nb := NormalizeSourceURL(tt.a), NormalizeSourceURL(tt.b); na != nb {
				t.Errorf("NormalizeSourceURL mismatch: %q vs %q", na, nb)
			}
		})
	}

	if got := NormalizeSourceURL("https://soundcloud.com/a/b"); got == NormalizeSourceURL("https://soundcloud.com/a/c") {
		t.Error("different tracks must not normalize equal")
	}
}

func TestPlatformFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://soundcloud.com/artist/track", "soundcloud"},
		{"https://www.youtube.com/watch?v=abc", "youtube"},
		{"https://youtu.be/abc", "youtube"},
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", "spotify"},
		{"https://example.com/file.mp3", "unknown"},
	}
	for _, tt := range tests {
		if got := PlatformFromURL(tt.url); got != tt.want {
			t.Errorf("PlatformFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestPlatformID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=x", "4uLU6hMCjMI75M1A2tKUQC"},
		{"https://soundcloud.com/Artist/Track-Name", "artist/track-name"},
		{"https://example.com/whatever", ""},
	}
	for _, tt := range tests {
		if got := PlatformID(tt.url); got != tt.want {
			t.Errorf("PlatformID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestTrackDisplayName(t *testing.T) {
	tr := &Track{Artist: "deadmau5", Title: "Strobe"}
	if got := tr.DisplayName(); got != "deadmau5 - Strobe" {
		t.Errorf("DisplayName = %q", got)
	}

	tr = &Track{Title: "Strobe"}
	if got := tr.DisplayName(); got != "Strobe" {
		t.Errorf("DisplayName = %q", got)
	}

	tr = &Track{SourceURL: "https://soundcloud.com/x/y"}
	if got := tr.DisplayName(); got != "https://soundcloud.com/x/y" {
		t.Errorf("DisplayName = %q", got)
	}
}
