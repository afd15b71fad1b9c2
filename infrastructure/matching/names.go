// Package matching resolves loosely typed names against a roster.
//
// Names are compared after Unicode case folding and removal of combining
// marks, so "theo" matches "Théo" exactly, and a Levenshtein similarity
// score picks the closest entry for typos such as "Theoo".
package matching

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultThreshold is the minimum similarity accepted by Resolve when the
// Matcher has no threshold set.
const DefaultThreshold = 0.75

var (
	// ErrNoMatch indicates that no roster entry is similar enough.
	ErrNoMatch = errors.New("no matching name")

	// ErrAmbiguous indicates that several distinct roster entries are
	// equally close.
	ErrAmbiguous = errors.New("ambiguous name")
)

// Normalize folds case, strips diacritics and trims surrounding space.
// Casers and transformers carry state, so a fresh chain is built per call.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		return cases.Fold().String(strings.TrimSpace(s))
	}
	return out
}

// Similarity returns 1 - distance/maxLen over the normalized forms of a and
// b, in [0, 1]. Lengths are counted in runes.
func Similarity(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	if a == b {
		return 1
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	return max(0, 1-float64(levenshtein.ComputeDistance(a, b))/float64(maxLen))
}

// Matcher resolves typed names against a roster.
type Matcher struct {
	// Threshold is the minimum similarity for a fuzzy match. Zero selects
	// DefaultThreshold.
	Threshold float64
}

func (m Matcher) threshold() float64 {
	if m.Threshold <= 0 {
		return DefaultThreshold
	}
	return m.Threshold
}

// Resolve returns the roster entry name refers to. An exact match wins,
// then a normalized match, then the single most similar entry at or above
// the threshold. Duplicate roster entries count once.
func (m Matcher) Resolve(name string, roster iter.Seq[string]) (string, error) {
	target := Normalize(name)

	var (
		best      string
		bestScore = -1.0
		tied      bool
		folded    []string
	)
	for entry := range roster {
		if entry == name {
			return entry, nil
		}
		if Normalize(entry) == target {
			folded = append(folded, entry)
			continue
		}
		score := Similarity(entry, name)
		switch {
		case score > bestScore:
			best, bestScore, tied = entry, score, false
		case score == bestScore && entry != best:
			tied = true
		}
	}

	switch distinct := dedupe(folded); {
	case len(distinct) == 1:
		return distinct[0], nil
	case len(distinct) > 1:
		return "", fmt.Errorf("%w: %q could be %s", ErrAmbiguous, name, strings.Join(distinct, ", "))
	}

	if bestScore < m.threshold() {
		return "", fmt.Errorf("%w: %q", ErrNoMatch, name)
	}
	if tied {
		return "", fmt.Errorf("%w: %q", ErrAmbiguous, name)
	}
	return best, nil
}

// Pair is two roster names judged to be near duplicates.
type Pair struct {
	A, B       string
	Similarity float64
}

// NearDuplicates returns every pair of distinct names whose similarity is at
// least threshold, in roster order. Identical names are skipped: they are
// legal and share a score cell.
func NearDuplicates(names []string, threshold float64) []Pair {
	var pairs []Pair
	for i := range names {
		for j := i + 1; j < len(names); j++ {
			if names[i] == names[j] {
				continue
			}
			if s := Similarity(names[i], names[j]); s >= threshold {
				pairs = append(pairs, Pair{A: names[i], B: names[j], Similarity: s})
			}
		}
	}
	return pairs
}

func dedupe(names []string) []string {
	var out []string
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
