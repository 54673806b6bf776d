package match_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"cratekeeper/internal/catalog"
	"cratekeeper/internal/eagle"
	"cratekeeper/internal/match"
)

const fullFP = "abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789"

func indexOf(items ...eagle.Item) *catalog.Index {
	entries := make([]catalog.Entry, len(items))
	for i, it := range items {
		entries[i] = catalog.FromItem(it)
	}
	fetch := func(ctx context.Context) ([]catalog.Entry, error) {
		return entries, nil
	}
	return catalog.NewIndex(fetch, time.Now, 5*time.Minute, nil)
}

func TestFindBestMatch_FingerprintIsDefinitive(t *testing.T) {
	// Track A carries the query's fingerprint but a completely unrelated
	// name; track B is a strong textual match. Fingerprint must win.
	ix := indexOf(
		eagle.Item{
			ID:   "A",
			Name: "zzz unrelated noise",
			Tags: []string{"fp:abcdef0123456789", "BPM120", "G Major"},
		},
		eagle.Item{
			ID:   "B",
			Name: "Daft Punk - One More Time",
			Tags: []string{"Daft Punk", "BPM123", "dur:320"},
		},
	)
	scorer := match.NewScorer(ix, match.DefaultParams())

	best, all := scorer.FindBestMatch(context.Background(), match.Query{
		Fingerprint: fullFP,
		Title:       "One More Time",
		Artist:      "Daft Punk",
		DurationSec: 320,
		BPM:         123,
	})

	if best == nil {
		t.Fatal("expected a best match")
	}
	if best.Entry.ID != "A" {
		t.Fatalf("expected fingerprint-matching entry A, got %s", best.Entry.ID)
	}
	if best.Breakdown.Fingerprint != 100 {
		t.Errorf("fingerprint contribution = %v, want 100", best.Breakdown.Fingerprint)
	}
	if best.Total < 100 {
		t.Errorf("total = %v, want >= 100", best.Total)
	}
	if len(all) == 0 {
		t.Error("expected the ranked candidate list")
	}
}

func TestFindBestMatch_CorroboratingSignalsNeverCarry(t *testing.T) {
	// Duration, BPM and key agree perfectly, title and artist not at all.
	// Even with the floor lowered below their sum, the acceptance gate must
	// reject the match outright.
	ix := indexOf(eagle.Item{
		ID:   "X",
		Name: "totally different track",
		Tags: []string{"BPM120", "dur:180", "G Major"},
	})
	params := match.DefaultParams()
	params.ScoreFloor = 30

	best, all := match.NewScorer(ix, params).FindBestMatch(context.Background(), match.Query{
		Title:       "some other song",
		Artist:      "someone else",
		DurationSec: 180,
		BPM:         120,
		Key:         "G Major",
	})

	if best != nil {
		t.Fatalf("expected rejection, got %s with %v", best.Entry.ID, best.Total)
	}
	if len(all) != 0 {
		t.Errorf("rejected match must return an empty candidate list, got %d", len(all))
	}
}

func TestFindBestMatch_TitleAloneRejected(t *testing.T) {
	// Exact title plus perfect corroboration reaches the floor, but with no
	// artist evidence the gate must reject it.
	ix := indexOf(eagle.Item{
		ID:   "X",
		Name: "Strobe",
		Tags: []string{"BPM128", "dur:634", "8B"},
	})

	best, all := match.NewScorer(ix, match.DefaultParams()).FindBestMatch(context.Background(), match.Query{
		Title:       "Strobe",
		Artist:      "deadmau5",
		DurationSec: 634,
		BPM:         128,
		Key:         "8B",
	})

	if best != nil {
		t.Fatalf("expected rejection without artist evidence, got total %v (artist %v)",
			best.Total, best.Breakdown.Artist)
	}
	if len(all) != 0 {
		t.Errorf("expected empty candidate list, got %d", len(all))
	}
}

func TestFindBestMatch_TitleAndArtistAccepted(t *testing.T) {
	ix := indexOf(eagle.Item{
		ID:   "X",
		Name: "Strobe",
		Tags: []string{"deadmau5", "BPM128", "dur:634", "8B"},
	})

	best, _ := match.NewScorer(ix, match.DefaultParams()).FindBestMatch(context.Background(), match.Query{
		Title:       "Strobe",
		Artist:      "deadmau5",
		DurationSec: 634,
		BPM:         128,
		Key:         "8B",
	})

	if best == nil {
		t.Fatal("expected a match")
	}
	if best.Breakdown.Title != 35 {
		t.Errorf("title contribution = %v, want 35", best.Breakdown.Title)
	}
	if best.Breakdown.Artist != 25 {
		t.Errorf("artist contribution = %v, want 25", best.Breakdown.Artist)
	}
	if best.Breakdown.Fingerprint != 0 {
		t.Errorf("unexpected fingerprint contribution %v", best.Breakdown.Fingerprint)
	}
	if best.Total < 70 {
		t.Errorf("total = %v, want >= 70", best.Total)
	}
}

func TestFindBestMatch_ArtistViaNameContainment(t *testing.T) {
	ix := indexOf(eagle.Item{
		ID:   "X",
		Name: "deadmau5 - Strobe",
		Tags: []string{"BPM128", "dur:634", "8B"},
	})

	best, _ := match.NewScorer(ix, match.DefaultParams()).FindBestMatch(context.Background(), match.Query{
		Title:       "deadmau5 - Strobe",
		Artist:      "deadmau5",
		DurationSec: 634,
		BPM:         128,
		Key:         "8B",
	})

	if best == nil {
		t.Fatal("expected a match")
	}
	// Containment credits the fixed 0.85 ratio.
	if want := 0.85 * 25; best.Breakdown.Artist != want {
		t.Errorf("artist contribution = %v, want %v", best.Breakdown.Artist, want)
	}
}

func TestFindBestMatch_DurationDecay(t *testing.T) {
	tests := []struct {
		name       string
		candidateD int
		wantScore  float64
	}{
		{"exact", 180, 15},
		{"one_second_off", 181, 15},
		{"three_seconds_off", 183, 4.5},
		{"four_seconds_off", 184, 2.25},
		{"five_seconds_off", 185, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := indexOf(eagle.Item{
				ID:   "X",
				Name: "Strobe",
				Tags: []string{"deadmau5", "BPM128", "dur:" + strconv.Itoa(tt.candidateD)},
			})

			best, _ := match.NewScorer(ix, match.DefaultParams()).FindBestMatch(context.Background(), match.Query{
				Title:       "Strobe",
				Artist:      "deadmau5",
				DurationSec: 180,
				BPM:         128,
				Key:         "8B",
			})

			if best == nil {
				t.Fatal("expected a match (title+artist are exact)")
			}
			if best.Breakdown.Duration != tt.wantScore {
				t.Errorf("duration contribution = %v, want %v", best.Breakdown.Duration, tt.wantScore)
			}
		})
	}
}

func TestFindBestMatch_BPMLadder(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      float64
	}{
		{"exact", "BPM128", 10},
		{"off_by_one", "BPM129", 8},
		{"off_by_two", "BPM126", 5},
		{"off_by_three", "BPM131", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := indexOf(eagle.Item{
				ID:   "X",
				Name: "Strobe",
				Tags: []string{"deadmau5", "8B", tt.candidate},
			})

			best, _ := match.NewScorer(ix, match.DefaultParams()).FindBestMatch(context.Background(), match.Query{
				Title:  "Strobe",
				Artist: "deadmau5",
				BPM:    128,
				Key:    "8B",
			})

			if best == nil {
				t.Fatal("expected a match")
			}
			if best.Breakdown.BPM != tt.want {
				t.Errorf("bpm contribution = %v, want %v", best.Breakdown.BPM, tt.want)
			}
		})
	}
}

func TestFindBestMatch_RelativeKeyPartialCredit(t *testing.T) {
	ix := indexOf(eagle.Item{
		ID:   "X",
		Name: "Strobe",
		Tags: []string{"deadmau5", "dur:634", "E Minor"},
	})

	best, _ := match.NewScorer(ix, match.DefaultParams()).FindBestMatch(context.Background(), match.Query{
		Title:       "Strobe",
		Artist:      "deadmau5",
		DurationSec: 634,
		Key:         "G Major",
	})

	if best == nil {
		t.Fatal("expected a match")
	}
	if best.Breakdown.Key != 7 {
		t.Errorf("relative key contribution = %v, want 7", best.Breakdown.Key)
	}
}

func TestFindBestMatch_NothingAboveFloor(t *testing.T) {
	ix := indexOf(eagle.Item{
		ID:   "X",
		Name: "Clair de Lune",
		Tags: []string{"Debussy"},
	})

	best, all := match.NewScorer(ix, match.DefaultParams()).FindBestMatch(context.Background(), match.Query{
		Title:  "Windowlicker",
		Artist: "Aphex Twin",
	})

	if best != nil || len(all) != 0 {
		t.Errorf("expected (nil, empty), got %v / %d candidates", best, len(all))
	}
}

func TestFindBestMatch_RankedDescending(t *testing.T) {
	ix := indexOf(
		eagle.Item{ID: "weak", Name: "Strobe", Tags: []string{"deadmau5", "dur:634", "BPM129"}},
		eagle.Item{ID: "strong", Name: "Strobe", Tags: []string{"deadmau5", "BPM128", "dur:634", "8B"}},
	)

	best, all := match.NewScorer(ix, match.DefaultParams()).FindBestMatch(context.Background(), match.Query{
		Title:       "Strobe",
		Artist:      "deadmau5",
		DurationSec: 634,
		BPM:         128,
		Key:         "8B",
	})

	if best == nil {
		t.Fatal("expected a match")
	}
	if best.Entry.ID != "strong" {
		t.Errorf("best = %s, want strong", best.Entry.ID)
	}
	for i := 1; i < len(all); i++ {
		if all[i].Total > all[i-1].Total {
			t.Errorf("candidates not sorted descending at %d: %v > %v", i, all[i].Total, all[i-1].Total)
		}
	}
}
