package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/payment-message-ledger/internal/api_gateway/middleware"
	"github.com/payment-message-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCorrectionHandler_Create(t *testing.T) {
	body := `{"channel":"acct","thread_ts":"1728000000.000100","original_text":"... | 아이디: SJ_1","correction_text":"접대비입니다","user":"U42"}`

	t.Run("success", func(t *testing.T) {
		mockService := new(MockCorrectionService)
		mockService.On("SubmitCorrection", mock.Anything, mock.MatchedBy(func(req *shared.CorrectionRequest) bool {
			return req.Channel == "acct" &&
				req.ThreadTS == "1728000000.000100" &&
				req.CorrectionText == "접대비입니다" &&
				req.CorrelationID == "corr-1" &&
				!req.ReceivedAt.IsZero()
		})).Return(nil)

		router := setupTestRouter()
		router.Use(middleware.CorrelationID())
		router.POST("/corrections", NewCorrectionHandler(newTestLogger(), mockService).Create)

		req, _ := http.NewRequest(http.MethodPost, "/corrections", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.CorrelationIDHeader, "corr-1")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusAccepted, rr.Code)
		var got map[string]string
		decodeData(t, rr, &got)
		assert.Equal(t, "PENDING", got["status"])
		mockService.AssertExpectations(t)
	})

	t.Run("invalid request body", func(t *testing.T) {
		mockService := new(MockCorrectionService)
		router := setupTestRouter()
		router.POST("/corrections", NewCorrectionHandler(newTestLogger(), mockService).Create)

		req, _ := http.NewRequest(http.MethodPost, "/corrections", bytes.NewBufferString(`{"channel":"acct"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "SubmitCorrection", mock.Anything, mock.Anything)
	})

	t.Run("failure", func(t *testing.T) {
		mockService := new(MockCorrectionService)
		mockService.On("SubmitCorrection", mock.Anything, mock.Anything).Return(errors.New("broker down"))
		router := setupTestRouter()
		router.POST("/corrections", NewCorrectionHandler(newTestLogger(), mockService).Create)

		req, _ := http.NewRequest(http.MethodPost, "/corrections", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", decodeError(t, rr).Code)
	})
}
