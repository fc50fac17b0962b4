package components

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/payment-message-ledger/internal/classifier"
	"github.com/payment-message-ledger/internal/domain/audit"
	"github.com/payment-message-ledger/internal/domain/receipt"
	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }
func int64Ptr(v int64) *int64 { return &v }
func floatPtr(v float64) *float64 { return &v }
func kindPtr(k shared.Kind) *shared.Kind { return &k }
func currencyPtr(c shared.Currency) *shared.Currency { return &c }

// fakeRecordRepo is an in-memory record.Repository applying the same predicates as the SQL store
type fakeRecordRepo struct {
	mu      sync.Mutex
	records map[string]*record.Record

	errs   map[string]error // keyed by method name
	hooks  map[string]func(messageID string)
	writes []string
}

func newFakeRecordRepo(records ...*record.Record) *fakeRecordRepo {
	repo := &fakeRecordRepo{
		records: make(map[string]*record.Record),
		errs:    make(map[string]error),
		hooks:   make(map[string]func(string)),
	}
	for _, r := range records {
		repo.records[r.MessageID] = r
	}
	return repo
}

func (f *fakeRecordRepo) get(id string) *record.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := *f.records[id]
	return &rec
}

func (f *fakeRecordRepo) list(pred func(r *record.Record) bool) []*record.Record {
	var out []*record.Record
	for _, r := range f.records {
		if pred(r) {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PaidAt.Equal(out[j].PaidAt) {
			return out[i].MessageID < out[j].MessageID
		}
		return out[i].PaidAt.Before(out[j].PaidAt)
	})
	return out
}

func (f *fakeRecordRepo) fail(method string) error {
	return f.errs[method]
}

func (f *fakeRecordRepo) touch(r *record.Record, method string) {
	r.Version++
	f.writes = append(f.writes, method+":"+r.MessageID)
}

func (f *fakeRecordRepo) Create(ctx context.Context, r *record.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[r.MessageID]; ok {
		return record.ErrDuplicateRecord{MessageID: r.MessageID}
	}
	f.records[r.MessageID] = r
	return nil
}

func (f *fakeRecordRepo) GetByID(ctx context.Context, id string) (*record.Record, error) {
	if hook := f.hooks["GetByID"]; hook != nil {
		hook(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetByID"); err != nil {
		return nil, err
	}
	r, ok := f.records[id]
	if !ok {
		return nil, record.ErrRecordNotFound{MessageID: id}
	}
	c := *r
	return &c, nil
}

func (f *fakeRecordRepo) LockForUpdate(ctx context.Context, id string) (*record.Record, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeRecordRepo) ListWithoutSenderName(ctx context.Context) ([]*record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(r *record.Record) bool { return r.SenderName == nil }), f.fail("ListWithoutSenderName")
}

func (f *fakeRecordRepo) SetSenderName(ctx context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.records[id]
	if r.SenderName == nil {
		r.SenderName = &name
		r.InLedger = true
		f.touch(r, "SetSenderName")
	}
	return nil
}

func (f *fakeRecordRepo) MarkDuplicates(ctx context.Context, sig record.DuplicateSignature) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.records {
		if strings.HasPrefix(r.MessageID, sig.IDPrefix) && r.SenderNumber == sig.SenderNumber &&
			strings.Contains(r.Message, sig.Marker) && !r.IsKind(shared.KindNotATransaction) {
			r.Kind = kindPtr(shared.KindNotATransaction)
			f.touch(r, "MarkDuplicates")
			n++
		}
	}
	return n, nil
}

func (f *fakeRecordRepo) ListUnclassified(ctx context.Context, since time.Time) ([]*record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(r *record.Record) bool { return r.Kind == nil && !r.PaidAt.Before(since) }), nil
}

func (f *fakeRecordRepo) SaveExtraction(ctx context.Context, id string, e record.Extraction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.records[id]
	if r.Kind != nil {
		return record.ErrConcurrentModification{MessageID: id}
	}
	r.Kind = kindPtr(e.Kind)
	r.Amount, r.Currency, r.Counterparty = e.Amount, e.Currency, e.Counterparty
	f.touch(r, "SaveExtraction")
	return nil
}

func (f *fakeRecordRepo) ListByKind(ctx context.Context, kind shared.Kind, withoutPurposeOnly bool) ([]*record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(r *record.Record) bool {
		return r.IsKind(kind) && (!withoutPurposeOnly || r.Purpose == nil)
	}), nil
}

func (f *fakeRecordRepo) SetPurpose(ctx context.Context, ids []string, purpose string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		if r, ok := f.records[id]; ok {
			r.Purpose = strPtr(purpose)
			if r.Confidence == nil {
				r.Confidence = floatPtr(0)
			}
			f.touch(r, "SetPurpose")
			n++
		}
	}
	return n, nil
}

func (f *fakeRecordRepo) ListInferenceTargets(ctx context.Context) ([]*record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(r *record.Record) bool {
		return r.IsKind(shared.KindApproval) && r.Counterparty != nil && r.Purpose == nil
	}), f.fail("ListInferenceTargets")
}

func (f *fakeRecordRepo) ListContextPool(ctx context.Context, minConfidence float64) ([]*record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(r *record.Record) bool {
		return r.Kind != nil && !r.IsKind(shared.KindNotATransaction) && r.Confidence != nil && *r.Confidence >= minConfidence
	}), nil
}

func (f *fakeRecordRepo) SaveClassification(ctx context.Context, id string, version int, c record.Classification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SaveClassification:" + id); err != nil {
		return err
	}
	r := f.records[id]
	if r.Version != version || r.Purpose != nil {
		return record.ErrConcurrentModification{MessageID: id}
	}
	f.applyClassification(r, c)
	f.touch(r, "SaveClassification")
	return nil
}

func (f *fakeRecordRepo) OverwriteClassification(ctx context.Context, id string, c record.Classification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("OverwriteClassification"); err != nil {
		return err
	}
	r, ok := f.records[id]
	if !ok {
		return record.ErrRecordNotFound{MessageID: id}
	}
	f.applyClassification(r, c)
	f.touch(r, "OverwriteClassification")
	return nil
}

func (f *fakeRecordRepo) applyClassification(r *record.Record, c record.Classification) {
	r.Purpose = strPtr(c.Purpose)
	r.CategoryMajor = strPtr(c.CategoryMajor)
	r.CategoryMinor = strPtr(c.CategoryMinor)
	r.Reason = strPtr(c.Reason)
	r.Confidence = floatPtr(c.Confidence)
}

func (f *fakeRecordRepo) ListResaleWithoutReceipt(ctx context.Context, since time.Time) ([]*record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(r *record.Record) bool {
		return r.Purpose != nil && *r.Purpose == shared.PurposeResaleGoods && r.ReceiptID == nil &&
			!r.PaidAt.Before(since) && r.Kind != nil && !r.IsKind(shared.KindNotATransaction)
	}), nil
}

func (f *fakeRecordRepo) LinkReceipt(ctx context.Context, id string, receiptID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.records[id]
	if r.ReceiptID != nil {
		return record.ErrReceiptAlreadyLinked{MessageID: id}
	}
	r.ReceiptID = &receiptID
	f.touch(r, "LinkReceipt")
	return nil
}

func (f *fakeRecordRepo) LatestPaidAt(ctx context.Context, prefix string) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("LatestPaidAt"); err != nil {
		return nil, err
	}
	var latest *time.Time
	for _, r := range f.records {
		if strings.HasPrefix(r.MessageID, prefix) && (latest == nil || r.PaidAt.After(*latest)) {
			t := r.PaidAt
			latest = &t
		}
	}
	return latest, nil
}

func (f *fakeRecordRepo) WithTx(tx pgx.Tx) record.Repository {
	return f
}

// fakeTransactor runs the unit of work without a real transaction
type fakeTransactor struct {
	mu    sync.Mutex
	calls int
}

func (t *fakeTransactor) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	return fn(nil)
}

type fakeReceiptRepo struct {
	receipts []*receipt.Receipt
	err      error
}

func (f *fakeReceiptRepo) ListAll(ctx context.Context) ([]*receipt.Receipt, error) {
	return f.receipts, f.err
}

func (f *fakeReceiptRepo) GetByID(ctx context.Context, id int64) (*receipt.Receipt, error) {
	for _, r := range f.receipts {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, receipt.ErrReceiptNotFound{ID: id}
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*audit.Entry
	err     error
}

func (f *fakeAuditRepo) Append(ctx context.Context, entry *audit.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) ListByMessageID(ctx context.Context, id string, limit int) ([]*audit.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*audit.Entry
	for _, e := range f.entries {
		if e.MessageID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

// MockNotifier mocks the service.Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, channel, text string) error {
	args := m.Called(ctx, channel, text)
	return args.Error(0)
}

func (m *MockNotifier) Reply(ctx context.Context, channel, threadTS, text string) error {
	args := m.Called(ctx, channel, threadTS, text)
	return args.Error(0)
}

// MockMessageClassifier mocks the service.MessageClassifier interface
type MockMessageClassifier struct {
	mock.Mock
}

func (m *MockMessageClassifier) Classify(ctx context.Context, text string, category shared.SenderCategory) (record.Extraction, error) {
	args := m.Called(ctx, text, category)
	return args.Get(0).(record.Extraction), args.Error(1)
}

// fakeAccountClassifier answers per counterparty and is safe for concurrent use
type fakeAccountClassifier struct {
	mu       sync.Mutex
	infer    func(in classifier.InferenceInput) (classifier.Result, error)
	correct  func(report, correction string) (classifier.Result, error)
	inputs   []classifier.InferenceInput
	inFlight int
	peak     int
}

func (f *fakeAccountClassifier) Infer(ctx context.Context, in classifier.InferenceInput) (classifier.Result, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return f.infer(in)
}

func (f *fakeAccountClassifier) Correct(ctx context.Context, report, correction string) (classifier.Result, error) {
	return f.correct(report, correction)
}

// inlineRunner runs batch tasks sequentially and records batch sizes
type inlineRunner struct {
	batches []int
}

func (r *inlineRunner) RunBatch(ctx context.Context, tasks []func()) {
	r.batches = append(r.batches, len(tasks))
	for _, task := range tasks {
		task()
	}
}

func approval(id, counterparty string, amount int64, paidAt time.Time) *record.Record {
	return &record.Record{
		MessageID:    id,
		Message:      "승인",
		PaidAt:       paidAt,
		SenderNumber: "15888900",
		Kind:         kindPtr(shared.KindApproval),
		Amount:       int64Ptr(amount),
		Currency:     currencyPtr(shared.CurrencyKRW),
		Counterparty: strPtr(counterparty),
		SenderName:   strPtr("신한카드"),
		Version:      1,
	}
}
