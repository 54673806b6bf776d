package match

import (
	"regexp"
	"strings"
)

// relativeKeys maps each traditional key to its relative counterpart
// (shared key signature, e.g. G Major / E Minor). Harmonically related keys
// get partial credit in scoring because DJs tag the same track in either.
var relativeKeys = map[string]string{
	"c major":  "a minor",
	"g major":  "e minor",
	"d major":  "b minor",
	"a major":  "f# minor",
	"e major":  "c# minor",
	"b major":  "g# minor",
	"f# major": "d# minor",
	"c# major": "a# minor",
	"f major":  "d minor",
	"bb major": "g minor",
	"eb major": "c minor",
	"ab major": "f minor",
	"db major": "bb minor",
	"gb major": "eb minor",
}

var camelotRegex = regexp.MustCompile(`^(1[0-2]|[1-9])([ab])$`)

// KeysEqual reports whether two key names denote the same key, ignoring case
// and surrounding space.
func KeysEqual(a, b string) bool {
	a, b = canonKey(a), canonKey(b)
	return a != "" && a == b
}

// KeysRelative reports whether two distinct keys are relative to each other,
// in traditional notation (C Major / A Minor) or Camelot notation (8B / 8A:
// same wheel number, opposite letter).
func KeysRelative(a, b string) bool {
	a, b = canonKey(a), canonKey(b)
	if a == "" || b == "" || a == b {
		return false
	}
	if relativeKeys[a] == b || relativeKeys[b] == a {
		return true
	}
	ma := camelotRegex.FindStringSubmatch(a)
	mb := camelotRegex.FindStringSubmatch(b)
	if ma != nil && mb != nil {
		return ma[1] == mb[1] && ma[2] != mb[2]
	}
	return false
}

func canonKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	if k == "unknown" {
		return ""
	}
	return k
}
