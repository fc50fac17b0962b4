package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/payment-message-ledger/internal/api_gateway/handler"
	"github.com/payment-message-ledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	messageHandler *handler.MessageHandler,
	correctionHandler *handler.CorrectionHandler,
) {
	// correlation id first so recovery and request logs can carry it
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		messages := v1.Group("/messages")
		{
			messages.POST("", messageHandler.Create)
			messages.GET("/unlinked", messageHandler.ListUnlinked)
			messages.GET("/:id", messageHandler.GetByID)
			messages.GET("/:id/audit", messageHandler.GetAuditTrail)
		}

		v1.POST("/corrections", correctionHandler.Create)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
