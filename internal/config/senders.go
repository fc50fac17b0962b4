package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/payment-message-ledger/internal/domain/shared"
)

var defaultCardSenders = map[string]string{
	"+8215888900":  "삼성카드",
	"+82220008100": "삼성카드",
	"+8215447200":  "신한카드",
	"+8215776200":  "현대카드",
	"+8215881688":  "국민카드",
	"+8215888100":  "롯데카드",
	"+82269589000": "우리카드",
}

var defaultBankSenders = map[string]string{
	"+8215993333": "카카오뱅크",
	"+8215778000": "신한은행",
}

// SenderDirectory maps sender identifiers to display names, one table per sender category.
// It is built once at startup and never mutated.
type SenderDirectory struct {
	card map[string]string
	bank map[string]string
}

// NewSenderDirectory copies the given tables into a new directory
func NewSenderDirectory(card, bank map[string]string) SenderDirectory {
	return SenderDirectory{card: copyTable(card), bank: copyTable(bank)}
}

// DefaultSenderDirectory returns the built-in card and bank tables
func DefaultSenderDirectory() SenderDirectory {
	return NewSenderDirectory(defaultCardSenders, defaultBankSenders)
}

// Lookup resolves a sender identifier, card table first
func (d SenderDirectory) Lookup(number string) (string, shared.SenderCategory, bool) {
	if name, ok := d.card[number]; ok {
		return name, shared.SenderCategoryCard, true
	}
	if name, ok := d.bank[number]; ok {
		return name, shared.SenderCategoryBank, true
	}
	return "", "", false
}

// Len returns the total number of known senders
func (d SenderDirectory) Len() int {
	return len(d.card) + len(d.bank)
}

func (d SenderDirectory) validate() error {
	if len(d.card) == 0 && len(d.bank) == 0 {
		return fmt.Errorf("sender directory is empty")
	}
	var overlap []string
	for number := range d.card {
		if _, ok := d.bank[number]; ok {
			overlap = append(overlap, number)
		}
	}
	if len(overlap) > 0 {
		sort.Strings(overlap)
		return fmt.Errorf("CARD_SENDERS and BANK_SENDERS overlap: %s", strings.Join(overlap, ", "))
	}
	return nil
}

func copyTable(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// parseAssignments reads "key=value,key=value" lists used by several settings.
// Whitespace around keys and values is ignored.
func parseAssignments(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("malformed entry %q, expected key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}
