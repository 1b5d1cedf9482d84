package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/irfndi/claw-quants/internal/simulator"
)

// Trend directions reported for traders and series.
const (
	TrendUp   = "up"
	TrendDown = "down"
)

// AITrader represents a bot listed on the leaderboard
type AITrader struct {
	ID               string                `json:"id"`
	Name             string                `json:"name"`
	Avatar           string                `json:"avatar"`
	Creator          string                `json:"creator"`
	WinRate          float64               `json:"win_rate"`
	MarketCap        decimal.Decimal       `json:"market_cap"`
	ExpectedReturn   float64               `json:"expected_return"`
	StartedAt        string                `json:"started_at"`
	DeployedAt       time.Time             `json:"deployed_at"`
	Trend            string                `json:"trend"`
	TotalTrades      int                   `json:"total_trades"`
	SuccessfulTrades int                   `json:"successful_trades"`
	Tags             []string              `json:"tags"`
	InitialPrice     float64               `json:"initial_price"`
	Volatility       float64               `json:"volatility"`
	Personality      simulator.Personality `json:"personality"`
	Color            string                `json:"color"`
}

// SeriesID returns the snapshot key of the trader's chart.
func (t AITrader) SeriesID() string {
	return "trader-" + t.ID
}

// SeriesParams returns the simulator parameters that drive the trader's chart.
func (t AITrader) SeriesParams(window int) simulator.Params {
	return simulator.Params{
		StartValue:  t.InitialPrice,
		Volatility:  t.Volatility,
		Personality: t.Personality,
		Count:       window,
	}
}

// TraderCard is the rendered view of a trader at a given rank
type TraderCard struct {
	Rank           int                   `json:"rank"`
	RankClass      string                `json:"rank_class"`
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Avatar         string                `json:"avatar"`
	Creator        string                `json:"creator"`
	Color          string                `json:"color"`
	StartedAt      string                `json:"started_at"`
	DeployedAgo    string                `json:"deployed_ago"`
	WinRate        string                `json:"win_rate"`
	LiveWinRate    string                `json:"live_win_rate"`
	ExpectedReturn string                `json:"expected_return"`
	MarketCap      string                `json:"market_cap"`
	TotalTrades    string                `json:"total_trades"`
	Tags           []string              `json:"tags"`
	Trend          string                `json:"trend"`
	Strategy       string                `json:"strategy"`
	SeriesID       string                `json:"series_id"`
	Personality    simulator.Personality `json:"personality"`
	StartValue     float64               `json:"start_value"`
	Volatility     float64               `json:"volatility"`
	Series         simulator.Series      `json:"series"`
	CurrentPrice   string                `json:"current_price"`
	PnLPercent     float64               `json:"pnl_percent"`
	PnL            string                `json:"pnl"`
}

// Log line severities.
const (
	LogInfo    = "info"
	LogSuccess = "success"
	LogError   = "error"
)

// LogLine is one line of a trader's activity terminal
type LogLine struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
