package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger logs one structured line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// allowCardSubmission throttles card submissions per player when redis is
// configured. Card charging providers penalize repeated bad pins.
func (s *Server) allowCardSubmission(c *gin.Context, playerID string) bool {
	if s.cardLimiter == nil {
		return true
	}

	allowed, err := s.cardLimiter.Allow(c.Request.Context(), "cards:"+playerID, 0.2, 3)
	if err != nil {
		s.log.Warn("card rate limiter unavailable", zap.Error(err))
		return true
	}
	return allowed
}
