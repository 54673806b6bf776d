package analysis

import "testing"

func TestParseBPM(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want int
	}{
		{"plain", "126.291 bpm\n", 126},
		{"rounds up", "127.80 bpm\n", 128},
		{"multi line", "0.453 s\n126.291 bpm\n", 126},
		{"trailing blank", "124.0 bpm\n\n", 124},
		{"garbage", "no tempo found\n", 0},
		{"empty", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseBPM(tt.out); got != tt.want {
				t.Errorf("parseBPM(%q) = %d, want %d", tt.out, got, tt.want)
			}
		})
	}
}
