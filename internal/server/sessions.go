package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/simpmc/simppay/internal/payment/domain"
	"go.uber.org/zap"
)

type sessionRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
}

func (s *Server) openSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	s.sessions.Join(req.PlayerID)
	c.JSON(http.StatusOK, gin.H{"online": true})
}

// closeSession removes the player's session and withdraws any pending bank
// transfer; a QR nobody can see should not keep matching webhooks.
func (s *Server) closeSession(c *gin.Context) {
	playerID := c.Param("player_id")
	s.sessions.Leave(playerID)

	if err := s.paymentSvc.CancelBank(c.Request.Context(), playerID); err != nil &&
		!errors.Is(err, paymentdomain.ErrPaymentNotFound) {
		s.log.Warn("cancel pending transfer on disconnect failed",
			zap.String("player_id", playerID), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"online": false})
}
