package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/payment-message-ledger/internal/domain/receipt"
	"github.com/payment-message-ledger/internal/platform/persistence"
)

// ReceiptRepository implements the receipt.Repository interface for PostgreSQL
type ReceiptRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewReceiptRepository(logger *slog.Logger, db *persistence.PostgresDB) receipt.Repository {
	return &ReceiptRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

func scanReceipt(row rowScanner) (*receipt.Receipt, error) {
	var rc receipt.Receipt
	err := row.Scan(
		&rc.ID,
		&rc.Date,
		&rc.CurrencyCode,
		&rc.Price,
		&rc.CashPrice,
		&rc.Vendor,
	)
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

// ListAll returns every receipt ordered by purchase date, then id
func (r *ReceiptRepository) ListAll(ctx context.Context) ([]*receipt.Receipt, error) {
	query := `
		SELECT id, receipt_date, receipt_currency, receipt_price, cash_receipt_price, vendor
		FROM receipts
		ORDER BY receipt_date ASC, id ASC
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list receipts", "error", err)
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*receipt.Receipt
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			r.logger.Error("Failed to scan receipt", "error", err)
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, rc)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating receipts", "error", err)
		return nil, fmt.Errorf("error iterating receipts: %w", err)
	}

	return receipts, nil
}

// GetByID retrieves a single receipt
func (r *ReceiptRepository) GetByID(ctx context.Context, id int64) (*receipt.Receipt, error) {
	query := `
		SELECT id, receipt_date, receipt_currency, receipt_price, cash_receipt_price, vendor
		FROM receipts
		WHERE id = $1
	`

	rc, err := scanReceipt(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, receipt.ErrReceiptNotFound{ID: id}
		}
		r.logger.Error("Failed to get receipt", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	return rc, nil
}
