package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/claw-quants/internal/models"
	"github.com/irfndi/claw-quants/internal/services"
)

// LeaderboardHandler exposes the trader roster.
type LeaderboardHandler struct {
	leaderboard  *services.Leaderboard
	agentsOffset int
}

// LeaderboardResponse is the ranked roster.
type LeaderboardResponse struct {
	Traders      []models.TraderCard `json:"traders"`
	Count        int                 `json:"count"`
	ActiveAgents int                 `json:"active_agents"`
}

// TraderResponse is a single card with indicator analytics.
type TraderResponse struct {
	models.TraderCard
	Analytics services.SeriesAnalytics `json:"analytics"`
}

// TraderLogsResponse holds the current activity log lines.
type TraderLogsResponse struct {
	ID    string           `json:"id"`
	Lines []models.LogLine `json:"lines"`
}

func NewLeaderboardHandler(leaderboard *services.Leaderboard, agentsOffset int) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard, agentsOffset: agentsOffset}
}

// GetLeaderboard returns the ranked trader cards.
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	cards := h.leaderboard.Cards(c.Request.Context())
	c.JSON(http.StatusOK, LeaderboardResponse{
		Traders:      cards,
		Count:        len(cards),
		ActiveAgents: len(cards) + h.agentsOffset,
	})
}

// GetTrader returns one trader's card and chart analytics.
func (h *LeaderboardHandler) GetTrader(c *gin.Context) {
	id := c.Param("id")
	for i, t := range h.leaderboard.Traders() {
		if t.ID != id {
			continue
		}
		card := h.leaderboard.Card(c.Request.Context(), t, i+1)
		c.JSON(http.StatusOK, TraderResponse{
			TraderCard: card,
			Analytics:  services.AnalyzeSeries(card.Series),
		})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "trader not found"})
}

// GetTraderLogs advances the trader's activity log by one line.
func (h *LeaderboardHandler) GetTraderLogs(c *gin.Context) {
	id := c.Param("id")
	lines, ok := h.leaderboard.Logs(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "trader not found"})
		return
	}
	c.JSON(http.StatusOK, TraderLogsResponse{ID: id, Lines: lines})
}
