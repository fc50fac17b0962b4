package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/payment-message-ledger/internal/domain/audit"
	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/domain/shared"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) IngestMessage(ctx context.Context, messageID, senderNumber, message string, paidAt time.Time) (*record.Record, error) {
	args := m.Called(ctx, messageID, senderNumber, message, paidAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.Record), args.Error(1)
}

func (m *MockMessageService) GetMessage(ctx context.Context, messageID string) (*record.Record, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.Record), args.Error(1)
}

func (m *MockMessageService) ListUnlinked(ctx context.Context) ([]*record.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*record.Record), args.Error(1)
}

func (m *MockMessageService) GetAuditTrail(ctx context.Context, messageID string, limit int) ([]*audit.Entry, error) {
	args := m.Called(ctx, messageID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Entry), args.Error(1)
}

type MockCorrectionService struct {
	mock.Mock
}

func (m *MockCorrectionService) SubmitCorrection(ctx context.Context, request *shared.CorrectionRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// decodeData unmarshals the "data" field of the response envelope into out
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data, "'data' field should not be empty")
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorInfo {
	t.Helper()
	var response Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	require.NotNil(t, response.Error)
	return *response.Error
}
