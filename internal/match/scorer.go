// Package match implements the multi-signal duplicate scoring engine: given
// a processed track's metadata and the pool of catalog entries, it produces a
// ranked list of scored candidates and selects a best match subject to a
// score floor and per-signal acceptance gates.
package match

import (
	"context"
	"sort"

	"cratekeeper/internal/catalog"
	"cratekeeper/internal/fingerprint"
	"cratekeeper/internal/textnorm"
)

// Params holds the per-signal weights and acceptance thresholds. The
// defaults are hand-tuned; changing them is a product decision, so they are
// carried as configuration rather than constants.
type Params struct {
	FingerprintWeight float64
	TitleWeight       float64
	ArtistWeight      float64
	DurationWeight    float64
	BPMWeight         float64
	KeyWeight         float64
	FilenameWeight    float64

	// ScoreFloor is the minimum total for a candidate to survive at all.
	ScoreFloor float64
	// TitleGate and ArtistGate are the minimum title/artist contributions a
	// non-fingerprint best match must reach. Duration, BPM and key are
	// corroborating signals only: many tracks share them, so they must never
	// carry a match on their own.
	TitleGate  float64
	ArtistGate float64

	// ArtistContainment is the similarity credited when the normalized
	// artist occurs verbatim inside the candidate's name.
	ArtistContainment float64
	// ArtistTagMin is the minimum similarity against a free-text tag before
	// it counts as an artist signal.
	ArtistTagMin float64
}

// DefaultParams returns the tuned production weights.
func DefaultParams() Params {
	return Params{
		FingerprintWeight: 100,
		TitleWeight:       35,
		ArtistWeight:      25,
		DurationWeight:    15,
		BPMWeight:         10,
		KeyWeight:         10,
		FilenameWeight:    5,
		ScoreFloor:        70,
		TitleGate:         30,
		ArtistGate:        20,
		ArtistContainment: 0.85,
		ArtistTagMin:      0.8,
	}
}

// Query carries everything known about the track being matched. Zero values
// mean "signal absent" and contribute no score.
type Query struct {
	Filename    string
	Fingerprint string // full hex digest
	Title       string
	Artist      string
	DurationSec int
	BPM         int
	Key         string
}

// Breakdown is the per-signal score decomposition of one candidate.
type Breakdown struct {
	Fingerprint float64
	Title       float64
	Artist      float64
	Duration    float64
	BPM         float64
	Key         float64
	Filename    float64
}

// Candidate pairs a catalog entry with its score breakdown.
type Candidate struct {
	Entry     catalog.Entry
	Breakdown Breakdown
	Total     float64
}

// Scorer scores queries against the catalog index. Stateless per call; safe
// for concurrent use.
type Scorer struct {
	index  *catalog.Index
	params Params
}

func NewScorer(index *catalog.Index, params Params) *Scorer {
	return &Scorer{index: index, params: params}
}

// FindBestMatch scores every catalog entry against the query and returns the
// best accepted candidate plus the full ranked list. A nil best with an
// empty list means "no duplicate": either nothing reached the score floor,
// or the leader failed the title+artist acceptance gate.
func (s *Scorer) FindBestMatch(ctx context.Context, q Query) (*Candidate, []Candidate) {
	pool := s.index.All(ctx)

	candidates := make([]Candidate, 0, 8)
	for _, e := range pool {
		c := s.score(q, e)
		if c.Total >= s.params.ScoreFloor {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Total != candidates[j].Total {
			return candidates[i].Total > candidates[j].Total
		}
		// Tie-break on recency so re-imports prefer the freshest entry.
		return candidates[i].Entry.ModifiedAt.After(candidates[j].Entry.ModifiedAt)
	})

	best := candidates[0]
	if best.Breakdown.Fingerprint == 0 {
		// Fingerprint equality is definitive; anything else must show strong
		// identity on both title and artist, no matter how high the
		// accumulated corroborating score is.
		if best.Breakdown.Title < s.params.TitleGate || best.Breakdown.Artist < s.params.ArtistGate {
			return nil, nil
		}
	}
	return &best, candidates
}

func (s *Scorer) score(q Query, e catalog.Entry) Candidate {
	var b Breakdown

	if q.Fingerprint != "" && e.Info.Fingerprint != "" &&
		fingerprint.Matches(e.Info.Fingerprint, q.Fingerprint) {
		b.Fingerprint = s.params.FingerprintWeight
	}

	if q.Title != "" {
		b.Title = s.params.TitleWeight * textnorm.Similarity(q.Title, e.Name)
	}

	b.Artist = s.params.ArtistWeight * s.artistSimilarity(q.Artist, e)

	if q.DurationSec > 0 && e.Info.DurationSec > 0 {
		b.Duration = durationScore(absInt(q.DurationSec-e.Info.DurationSec), s.params.DurationWeight)
	}

	if q.BPM > 0 && e.Info.BPM > 0 {
		b.BPM = bpmScore(absInt(q.BPM-e.Info.BPM), s.params.BPMWeight)
	}

	if q.Key != "" && e.Info.Key != "" {
		switch {
		case KeysEqual(q.Key, e.Info.Key):
			b.Key = s.params.KeyWeight
		case KeysRelative(q.Key, e.Info.Key):
			b.Key = 0.7 * s.params.KeyWeight
		}
	}

	if q.Filename != "" && e.Path != "" {
		b.Filename = s.params.FilenameWeight *
			textnorm.Similarity(textnorm.Stem(q.Filename), textnorm.Stem(e.Path))
	}

	return Candidate{
		Entry:     e,
		Breakdown: b,
		Total:     b.Fingerprint + b.Title + b.Artist + b.Duration + b.BPM + b.Key + b.Filename,
	}
}

// artistSimilarity returns the best artist evidence in [0,1]: containment of
// the artist in the entry name, or similarity against any free-text tag.
// Structured tags (BPM, key, fingerprint, duration, format markers) never
// count as artist evidence.
func (s *Scorer) artistSimilarity(artist string, e catalog.Entry) float64 {
	if artist == "" {
		return 0
	}

	best := 0.0
	if textnorm.ContainsNormalized(e.Name, artist) {
		best = s.params.ArtistContainment
	}
	for _, tag := range e.Tags {
		if catalog.IsStructuredTag(tag) {
			continue
		}
		if sim := textnorm.Similarity(artist, tag); sim > s.params.ArtistTagMin && sim > best {
			best = sim
		}
	}
	return best
}

// durationScore decays with the absolute difference in seconds: full weight
// within 1s, down to 30% of weight at 3s, down to zero at 5s.
func durationScore(diff int, weight float64) float64 {
	switch {
	case diff <= 1:
		return weight
	case diff < 3:
		return weight * (1 - 0.7*float64(diff-1)/2)
	case diff <= 5:
		return weight * 0.3 * (1 - float64(diff-3)/2)
	default:
		return 0
	}
}

// bpmScore is a step ladder: exact, off-by-one, off-by-two, nothing.
func bpmScore(diff int, weight float64) float64 {
	switch diff {
	case 0:
		return weight
	case 1:
		return 0.8 * weight
	case 2:
		return 0.5 * weight
	default:
		return 0
	}
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
