package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/simpmc/simppay/internal/ledger/domain"
)

func (s *Server) getPlayerSummary(c *gin.Context) {
	summary, err := s.aggregateSvc.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"player_id": summary.PlayerID,
		"totals": gin.H{
			"alltime": summary.Totals.Total,
			"daily":   summary.Totals.Daily,
			"weekly":  summary.Totals.Weekly,
			"monthly": summary.Totals.Monthly,
			"yearly":  summary.Totals.Yearly,
		},
		"refreshed_at": summary.RefreshedAt.Unix(),
	})
}

func (s *Server) getPlayerStreak(c *gin.Context) {
	streak, err := s.streakSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"player_id": streak.PlayerID,
		"current":   streak.Current,
		"best":      streak.Best,
	})
}

func (s *Server) getLeaderboard(c *gin.Context) {
	window, err := ledgerdomain.ParseWindow(c.Param("window"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	rows, err := s.aggregateSvc.Leaderboard(c.Request.Context(), window, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	type rankedEntry struct {
		Rank     int    `json:"rank"`
		PlayerID string `json:"player_id"`
		Amount   int64  `json:"amount"`
	}
	out := make([]rankedEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, rankedEntry{Rank: row.Rank, PlayerID: row.PlayerID, Amount: row.Amount})
	}
	c.JSON(http.StatusOK, gin.H{"window": string(window), "entries": out})
}
