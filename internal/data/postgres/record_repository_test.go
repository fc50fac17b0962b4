package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var recordColumnNames = []string{
	"message_id", "message", "in_ledger", "paid_at", "sender_number", "type", "amount", "currency",
	"counterparty", "sender_name", "purpose", "category_major", "category_minor", "reason", "confidence",
	"receipt_id", "version", "created_at", "updated_at",
}

func strPtr(s string) *string      { return &s }
func int64Ptr(v int64) *int64    { return &v }
func floatPtr(v float64) *float64 { return &v }

func newRecordMock(t *testing.T) (pgxmock.PgxPoolIface, *RecordRepository) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, &RecordRepository{querier: mock, logger: newTestLogger()}
}

// approvalRow is a fully extracted approval without classification
func approvalRow(id string, paidAt time.Time) *pgxmock.Rows {
	now := time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(recordColumnNames).AddRow(
		id, "[Web발신] 승인 17,700원 스타벅스", true, paidAt, "15888900",
		strPtr("승인"), int64Ptr(17700), strPtr("KRW"),
		strPtr("스타벅스"), strPtr("신한카드"), nil, nil, nil, nil, nil,
		nil, 2, now, now,
	)
}

func TestRecordRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, repo := newRecordMock(t)

	rec, err := record.NewRecord("SJ_1", "15888900", "승인 1,000원", time.Date(2025, 10, 1, 3, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	query := regexp.QuoteMeta("INSERT INTO payment_messages (message_id, message, in_ledger, paid_at, sender_number, version, created_at, updated_at)")

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(rec.MessageID, rec.Message, rec.InLedger, rec.PaidAt, rec.SenderNumber, rec.Version, rec.CreatedAt, rec.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(rec.MessageID, rec.Message, rec.InLedger, rec.PaidAt, rec.SenderNumber, rec.Version, rec.CreatedAt, rec.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.Create(ctx, rec)
		assert.ErrorIs(t, err, record.ErrDuplicateRecord{MessageID: "SJ_1"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(rec.MessageID, rec.Message, rec.InLedger, rec.PaidAt, rec.SenderNumber, rec.Version, rec.CreatedAt, rec.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, rec)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create record")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, repo := newRecordMock(t)
	paidAt := time.Date(2025, 10, 1, 3, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta("FROM payment_messages WHERE message_id = $1")

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("SJ_1").WillReturnRows(approvalRow("SJ_1", paidAt))

		rec, err := repo.GetByID(ctx, "SJ_1")
		require.NoError(t, err)
		assert.Equal(t, "SJ_1", rec.MessageID)
		assert.True(t, rec.IsKind(shared.KindApproval))
		require.NotNil(t, rec.Currency)
		assert.Equal(t, shared.CurrencyKRW, *rec.Currency)
		assert.Equal(t, int64(17700), *rec.Amount)
		assert.Equal(t, "스타벅스", rec.CounterpartyName())
		assert.Nil(t, rec.Purpose)
		assert.Nil(t, rec.Confidence)
		assert.Equal(t, 2, rec.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, record.ErrRecordNotFound{MessageID: "missing"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs("SJ_1").WillReturnError(expectedErr)

		_, err := repo.GetByID(ctx, "SJ_1")
		assert.ErrorIs(t, err, expectedErr)
		assert.Contains(t, err.Error(), "failed to get record")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, repo := newRecordMock(t)
	query := regexp.QuoteMeta("WHERE message_id = $1 FOR UPDATE")

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("SJ_1").WillReturnRows(approvalRow("SJ_1", time.Now().UTC()))

		rec, err := repo.LockForUpdate(ctx, "SJ_1")
		require.NoError(t, err)
		assert.Equal(t, "SJ_1", rec.MessageID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("SJ_2").WillReturnError(pgx.ErrNoRows)

		_, err := repo.LockForUpdate(ctx, "SJ_2")
		assert.ErrorIs(t, err, record.ErrRecordNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRepository_MarkDuplicates(t *testing.T) {
	ctx := context.Background()
	mock, repo := newRecordMock(t)
	sig := record.DuplicateSignature{IDPrefix: "SJ_", SenderNumber: "+8215776200", Marker: "고*지"}
	query := regexp.QuoteMeta("WHERE message_id LIKE $2 AND sender_number = $3 AND message LIKE $4 AND (type IS NULL OR type <> $1)")

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("N", `SJ\_%`, "+8215776200", "%고*지%").
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))

		n, err := repo.MarkDuplicates(ctx, sig)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("idempotent rerun", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("N", `SJ\_%`, "+8215776200", "%고*지%").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		n, err := repo.MarkDuplicates(ctx, sig)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRepository_SaveExtraction(t *testing.T) {
	ctx := context.Background()
	mock, repo := newRecordMock(t)
	query := regexp.QuoteMeta("SET type = $1, amount = $2, currency = $3, counterparty = $4")

	krw := shared.CurrencyKRW
	extraction := record.Extraction{
		Kind:         shared.KindApproval,
		Amount:       int64Ptr(17700),
		Currency:     &krw,
		Counterparty: strPtr("스타벅스"),
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("승인", extraction.Amount, strPtr("KRW"), extraction.Counterparty, "SJ_1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.SaveExtraction(ctx, "SJ_1", extraction))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not a transaction", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("N", (*int64)(nil), (*string)(nil), (*string)(nil), "SJ_2").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.SaveExtraction(ctx, "SJ_2", record.NotATransaction()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already typed", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("승인", extraction.Amount, strPtr("KRW"), extraction.Counterparty, "SJ_1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.SaveExtraction(ctx, "SJ_1", extraction)
		assert.ErrorIs(t, err, record.ErrConcurrentModification{MessageID: "SJ_1"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRepository_ListByKind(t *testing.T) {
	ctx := context.Background()
	mock, repo := newRecordMock(t)
	paidAt := time.Date(2025, 10, 1, 3, 0, 0, 0, time.UTC)

	t.Run("all of kind", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE type = $1 ORDER BY paid_at ASC")).
			WithArgs("승인").
			WillReturnRows(approvalRow("SJ_1", paidAt).AddRow(
				"SJ_2", "승인", true, paidAt.Add(time.Hour), "15888900",
				strPtr("승인"), int64Ptr(5000), strPtr("KRW"),
				strPtr("GS25"), strPtr("신한카드"), strPtr("복리후생"), strPtr("판관비"), strPtr("복리후생비"), strPtr("간식"), floatPtr(0.95),
				nil, 3, paidAt, paidAt,
			))

		recs, err := repo.ListByKind(ctx, shared.KindApproval, false)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "SJ_2", recs[1].MessageID)
		assert.Equal(t, 0.95, *recs[1].Confidence)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("without purpose only", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE type = $1 AND purpose IS NULL")).
			WithArgs("승인취소").
			WillReturnRows(pgxmock.NewRows(recordColumnNames))

		recs, err := repo.ListByKind(ctx, shared.KindCancellation, true)
		require.NoError(t, err)
		assert.Empty(t, recs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(regexp.QuoteMeta("WHERE type = $1")).WithArgs("입금").WillReturnError(expectedErr)

		_, err := repo.ListByKind(ctx, shared.KindDeposit, false)
		assert.ErrorIs(t, err, expectedErr)
		assert.Contains(t, err.Error(), "failed to list records by kind")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRepository_SetPurpose(t *testing.T) {
	ctx := context.Background()
	mock, repo := newRecordMock(t)

	t.Run("success", func(t *testing.T) {
		ids := []string{"SJ_1", "SJ_2"}
		mock.ExpectExec(regexp.QuoteMeta("SET purpose = $1, confidence = COALESCE(confidence, 0)")).
			WithArgs(shared.PurposeCancelled, ids).
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))

		n, err := repo.SetPurpose(ctx, ids, shared.PurposeCancelled)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no ids skips the query", func(t *testing.T) {
		n, err := repo.SetPurpose(ctx, nil, shared.PurposeCancelled)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRepository_ListContextPool(t *testing.T) {
	ctx := context.Background()
	mock, repo := newRecordMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE type IS NOT NULL AND type <> $1 AND confidence >= $2")).
		WithArgs("N", 0.9).
		WillReturnRows(pgxmock.NewRows(recordColumnNames))

	recs, err := repo.ListContextPool(ctx, 0.9)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_SaveClassification(t *testing.T) {
	ctx := context.Background()
	mock, repo := newRecordMock(t)
	query := regexp.QuoteMeta("WHERE message_id = $6 AND version = $7 AND purpose IS NULL")
	c := record.Classification{Purpose: "복리후생", CategoryMajor: "판관비", CategoryMinor: "복리후생비", Reason: "간식", Confidence: 0.9}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(c.Purpose, c.CategoryMajor, c.CategoryMinor, c.Reason, c.Confidence, "SJ_1", 2).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.SaveClassification(ctx, "SJ_1", 2, c))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(c.Purpose, c.CategoryMajor, c.CategoryMinor, c.Reason, c.Confidence, "SJ_1", 2).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.SaveClassification(ctx, "SJ_1", 2, c)
		assert.ErrorIs(t, err, record.ErrConcurrentModification{MessageID: "SJ_1"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRepository_OverwriteClassification(t *testing.T) {
	ctx := context.Background()
	mock, repo := newRecordMock(t)
	query := regexp.QuoteMeta("reason = $4, confidence = $5, version = version + 1, updated_at = NOW() WHERE message_id = $6")
	c := record.Classification{Purpose: "접대", CategoryMajor: "판관비", CategoryMinor: "접대비", Reason: "거래처 식사", Confidence: 1}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(c.Purpose, c.CategoryMajor, c.CategoryMinor, c.Reason, c.Confidence, "SJ_1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.OverwriteClassification(ctx, "SJ_1", c))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(c.Purpose, c.CategoryMajor, c.CategoryMinor, c.Reason, c.Confidence, "SJ_9").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.OverwriteClassification(ctx, "SJ_9", c)
		assert.ErrorIs(t, err, record.ErrRecordNotFound{MessageID: "SJ_9"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRepository_LinkReceipt(t *testing.T) {
	ctx := context.Background()
	mock, repo := newRecordMock(t)
	query := regexp.QuoteMeta("SET receipt_id = $1, version = version + 1, updated_at = NOW() WHERE message_id = $2 AND receipt_id IS NULL")

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(int64(42), "SJ_1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.LinkReceipt(ctx, "SJ_1", 42))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already linked", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(int64(42), "SJ_1").WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.LinkReceipt(ctx, "SJ_1", 42)
		assert.ErrorIs(t, err, record.ErrReceiptAlreadyLinked{MessageID: "SJ_1"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRepository_ListResaleWithoutReceipt(t *testing.T) {
	ctx := context.Background()
	mock, repo := newRecordMock(t)
	since := time.Date(2025, 9, 30, 15, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE purpose = $1 AND receipt_id IS NULL AND paid_at >= $2")).
		WithArgs(shared.PurposeResaleGoods, since, "N").
		WillReturnRows(approvalRow("SJ_1", since.Add(time.Hour)))

	recs, err := repo.ListResaleWithoutReceipt(ctx, since)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_LatestPaidAt(t *testing.T) {
	ctx := context.Background()
	mock, repo := newRecordMock(t)
	query := regexp.QuoteMeta("SELECT MAX(paid_at) FROM payment_messages WHERE message_id LIKE $1")

	t.Run("success", func(t *testing.T) {
		latest := time.Date(2025, 10, 1, 3, 0, 0, 0, time.UTC)
		mock.ExpectQuery(query).WithArgs(`HJ\_%`).
			WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(&latest))

		got, err := repo.LatestPaidAt(ctx, "HJ_")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, latest.Equal(*got))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no records", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(`HJ\_%`).
			WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(nil))

		got, err := repo.LatestPaidAt(ctx, "HJ_")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRepository_WithTx(t *testing.T) {
	mock, repo := newRecordMock(t)

	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	txRepo := repo.WithTx(tx)
	require.NotNil(t, txRepo)
	assert.NotSame(t, repo, txRepo)
	assert.Equal(t, tx, txRepo.(*RecordRepository).querier)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `SJ\_`, escapeLike("SJ_"))
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
}
