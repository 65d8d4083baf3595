package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/simpmc/simppay/internal/ledger/domain"
)

// resetMilestoneWindow re-arms every milestone of a timed window without
// waiting for the calendar to roll over.
func (s *Server) resetMilestoneWindow(c *gin.Context) {
	window, err := ledgerdomain.ParseWindow(c.Param("window"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	deleted, err := s.milestoneSvc.ResetWindow(c.Request.Context(), window)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"window": string(window), "reset": deleted})
}
