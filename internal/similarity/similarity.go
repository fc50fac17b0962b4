// Package similarity scores how close two counterparty names are on a 0 to 100 scale.
package similarity

import (
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// MaxScore is the score of two identical strings
const MaxScore = 100.0

// indel distance: substitutions cost as much as a deletion plus an insertion
var ratioOptions = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 2,
	Matches: levenshtein.IdenticalRunes,
}

// Ratio returns (len(a)+len(b)-distance)/(len(a)+len(b))*100 over runes.
// It is symmetric, Ratio(a, a) == 100 and Ratio("", "") == 100.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return MaxScore
	}
	dist := levenshtein.DistanceForStrings(ra, rb, ratioOptions)
	return float64(total-dist) / float64(total) * MaxScore
}

// Compare scores two nullable names. A nil side is never a match.
func Compare(a, b *string) (float64, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	return Ratio(*a, *b), true
}

// AtLeast reports whether both names are present and score >= threshold
func AtLeast(a, b *string, threshold float64) bool {
	score, ok := Compare(a, b)
	return ok && score >= threshold
}

// Above reports whether both names are present and score > threshold
func Above(a, b *string, threshold float64) bool {
	score, ok := Compare(a, b)
	return ok && score > threshold
}
