package receipt

import (
	"context"
	"strconv"
	"time"

	"github.com/payment-message-ledger/internal/domain/shared"
)

// Receipt is an externally maintained proof of purchase.
// CurrencyCode is 0 for JPY and anything else for KRW.
type Receipt struct {
	ID           int64     `json:"id"`
	Date         time.Time `json:"receipt_date"`
	CurrencyCode int16     `json:"receipt_currency"`
	Price        *int64    `json:"receipt_price,omitempty"`
	CashPrice    *int64    `json:"cash_receipt_price,omitempty"`
	Vendor       *string   `json:"vendor,omitempty"`
}

// Currency maps the receipt-side integer code to a currency
func (r *Receipt) Currency() shared.Currency {
	if r.CurrencyCode == 0 {
		return shared.CurrencyJPY
	}
	return shared.CurrencyKRW
}

// Total sums the cash and price components, nil components count as zero
func (r *Receipt) Total() int64 {
	var total int64
	if r.Price != nil {
		total += *r.Price
	}
	if r.CashPrice != nil {
		total += *r.CashPrice
	}
	return total
}

// Repository exposes read access; the pipeline never writes receipts
type Repository interface {
	ListAll(ctx context.Context) ([]*Receipt, error)
	GetByID(ctx context.Context, id int64) (*Receipt, error)
}

// ErrReceiptNotFound indicates a missing receipt
type ErrReceiptNotFound struct {
	ID int64
}

func (e ErrReceiptNotFound) Error() string {
	return "receipt not found: " + strconv.FormatInt(e.ID, 10)
}
