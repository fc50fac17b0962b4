package components

import (
	"sort"

	"github.com/payment-message-ledger/internal/classifier"
	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/similarity"
)

// BuildSimilarityContext selects pool records whose counterparty scores above threshold
// against the target and that carry at least one classification hint. It keeps the most
// confident exemplar per (purpose, major, minor) triple, most confident first, at most limit.
// A null label and an empty label are different triples.
func BuildSimilarityContext(target *record.Record, pool []*record.Record, threshold float64, limit int) []classifier.ContextEntry {
	var order []record.LabelKey
	best := make(map[record.LabelKey]classifier.ContextEntry)

	for _, candidate := range pool {
		if candidate.MessageID == target.MessageID || !candidate.HasClassificationHint() {
			continue
		}
		if !similarity.Above(target.Counterparty, candidate.Counterparty, threshold) {
			continue
		}

		c := record.ClassificationOf(candidate)
		key := candidate.LabelKey()
		existing, seen := best[key]
		if seen && c.Confidence <= existing.Confidence {
			continue
		}
		if !seen {
			order = append(order, key)
		}
		best[key] = classifier.ContextEntry{
			Counterparty:  candidate.CounterpartyName(),
			Purpose:       c.Purpose,
			CategoryMajor: c.CategoryMajor,
			CategoryMinor: c.CategoryMinor,
			Reason:        c.Reason,
			Confidence:    c.Confidence,
		}
	}

	entries := make([]classifier.ContextEntry, 0, len(order))
	for _, key := range order {
		entries = append(entries, best[key])
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Confidence > entries[j].Confidence
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
