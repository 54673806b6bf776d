// Package textnorm normalizes free text (titles, artist names, tags) into a
// comparable canonical form and computes similarity ratios between strings.
package textnorm

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
)

var (
	bracketRegex = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]|\{[^}]*\}`)
)

// Normalize converts text into its canonical comparable form: lowercase,
// bracketed segments removed (remix/feat adornments), everything that is not
// a letter or digit collapsed to single spaces, trimmed. Idempotent.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = bracketRegex.ReplaceAllString(s, " ")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity returns a ratio in [0,1] between the canonical forms of a and b.
// Symmetric. Identical non-empty strings score 1.0. An empty side scores 0
// ("no signal"), so blank fields never trivially match each other.
func Similarity(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	sim, err := edlib.StringsSimilarity(na, nb, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return float64(sim)
}

// Stem returns the normalized filename stem of a path, for the weakest
// tie-break signal in match scoring.
func Stem(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return Normalize(base)
}

// ContainsNormalized reports whether the canonical form of needle occurs
// inside the canonical form of haystack.
func ContainsNormalized(haystack, needle string) bool {
	h := Normalize(haystack)
	n := Normalize(needle)
	if h == "" || n == "" {
		return false
	}
	return strings.Contains(h, n)
}
