package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/simpmc/simppay/internal/payment/domain"
	"go.uber.org/zap"
)

// handleSepayWebhook authenticates, parses, and matches one transfer
// notification. Any 2xx tells the provider to stop retrying, so unmatched
// and ignored notifications still return 200.
func (s *Server) handleSepayWebhook(c *gin.Context) {
	if err := s.webhookSvc.Authorize(c.GetHeader("Authorization")); err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, paymentdomain.ErrInvalidAPIKey) {
			status = http.StatusForbidden
		}
		c.AbortWithStatusJSON(status, gin.H{"success": false, "message": err.Error()})
		return
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": "unreadable body"})
		return
	}

	outcome, err := s.webhookSvc.Ingest(c.Request.Context(), raw)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrInvalidPayload) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid payload"})
			return
		}
		s.log.Error("webhook processing failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "outcome": string(outcome)})
}
