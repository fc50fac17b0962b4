package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/payment-message-ledger/internal/api_gateway/middleware"
	"github.com/payment-message-ledger/internal/api_gateway/service"
	"github.com/payment-message-ledger/internal/domain/shared"
)

// CorrectionHandler accepts human corrections and forwards them asynchronously
type CorrectionHandler struct {
	correctionService service.CorrectionService
	logger            *slog.Logger
}

// NewCorrectionHandler creates a new correction handler
func NewCorrectionHandler(logger *slog.Logger, correctionService service.CorrectionService) *CorrectionHandler {
	return &CorrectionHandler{
		correctionService: correctionService,
		logger:            logger,
	}
}

// Create publishes the correction; the outcome is posted back to the thread
func (h *CorrectionHandler) Create(c *gin.Context) {
	var req SubmitCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	request := &shared.CorrectionRequest{
		Channel:        req.Channel,
		ThreadTS:       req.ThreadTS,
		OriginalText:   req.OriginalText,
		CorrectionText: req.CorrectionText,
		User:           req.User,
		CorrelationID:  middleware.GetCorrelationID(c),
		ReceivedAt:     time.Now().UTC(),
	}

	if err := h.correctionService.SubmitCorrection(c.Request.Context(), request); err != nil {
		h.logger.Error("Failed to submit correction", "thread_ts", req.ThreadTS, "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"thread_ts": request.ThreadTS,
		"status":    "PENDING",
	})
}
