package shared

import (
	"errors"
	"strings"
)

var (
	ErrInvalidKind     = errors.New("invalid transaction kind")
	ErrInvalidCurrency = errors.New("invalid currency")
)

// Kind defines the closed set of transaction types a notification can describe.
// Values are the labels stored in the record table.
type Kind string

const (
	KindApproval             Kind = "승인"
	KindApprovalCancellation Kind = "승인취소"
	KindRejection            Kind = "거절"
	KindDeposit              Kind = "입금"
	KindWithdrawal           Kind = "출금"
	KindNotATransaction      Kind = "N"
)

var kinds = []Kind{
	KindApproval,
	KindApprovalCancellation,
	KindRejection,
	KindDeposit,
	KindWithdrawal,
	KindNotATransaction,
}

// ParseKind validates a raw kind label
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", ErrInvalidKind
}

// MovesMoney reports whether a record of this kind can carry a business purpose
func (k Kind) MovesMoney() bool {
	return k != "" && k != KindNotATransaction
}

// Currency is an ISO 4217 code from the closed set the classifiers may emit
type Currency string

const (
	CurrencyKRW Currency = "KRW"
	CurrencyJPY Currency = "JPY"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// ParseCurrency validates and upper-cases a raw currency code
func ParseCurrency(s string) (Currency, error) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(s))); c {
	case CurrencyKRW, CurrencyJPY, CurrencyUSD, CurrencyEUR:
		return c, nil
	default:
		return "", ErrInvalidCurrency
	}
}

// Purpose labels with pipeline meaning
const (
	PurposeCancelled   = "취소건"
	PurposeResaleGoods = "판매용상품"
)

// SenderCategory selects the message-classifier variant for a sender
type SenderCategory string

const (
	SenderCategoryCard SenderCategory = "card"
	SenderCategoryBank SenderCategory = "bank"
)

// ClassificationSource records who produced a classification
type ClassificationSource string

const (
	ClassificationSourceInference  ClassificationSource = "inference"
	ClassificationSourceCorrection ClassificationSource = "correction"
)
