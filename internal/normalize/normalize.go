// Package normalize strips issuer boilerplate from raw notification text before classification.
package normalize

import "strings"

// DefaultRemovals are applied in order; longer issuer prefixes precede the bare "[Web발신]" tag
var DefaultRemovals = []string{
	"[Web발신] The Platinum ",
	"[Web발신] 올리브영 현대카드 ",
	"[Web발신] 대한항공카드 ",
	"[Web발신] KB국민카드",
	"[Web발신] [현대카드] ",
	"고*지",
	"권*진",
	"[Web발신]",
	".00",
}

// DefaultTruncationMarkers start the running-total and balance suffixes
var DefaultTruncationMarkers = []string{"누적", "잔액"}

// Normalizer removes literal substrings, then cuts the text at truncation markers
type Normalizer struct {
	removals []string
	markers  []string
}

func New(removals, markers []string) Normalizer {
	return Normalizer{
		removals: append([]string(nil), removals...),
		markers:  append([]string(nil), markers...),
	}
}

// Default returns the normalizer for the known card and bank issuers
func Default() Normalizer {
	return New(DefaultRemovals, DefaultTruncationMarkers)
}

// Normalize is total: text matching no rule is returned unchanged
func (n Normalizer) Normalize(text string) string {
	for _, r := range n.removals {
		text = strings.ReplaceAll(text, r, "")
	}
	for _, m := range n.markers {
		if i := strings.Index(text, m); i >= 0 {
			text = text[:i]
		}
	}
	return text
}
