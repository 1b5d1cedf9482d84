package services

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/irfndi/claw-quants/internal/models"
)

var (
	million  = decimal.NewFromInt(1_000_000)
	thousand = decimal.NewFromInt(1_000)
	printer  = message.NewPrinter(language.English)
	titler   = cases.Title(language.English)
)

// FormatMarketCap renders a market cap as $1.23M, $450K or $999.
func FormatMarketCap(v decimal.Decimal) string {
	switch {
	case v.GreaterThanOrEqual(million):
		return "$" + v.Div(million).StringFixed(2) + "M"
	case v.GreaterThanOrEqual(thousand):
		return "$" + v.Div(thousand).StringFixed(0) + "K"
	default:
		return "$" + v.String()
	}
}

// FormatCount renders n with thousands separators.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatPercent renders a percentage with one decimal.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// FormatSignedPercent renders a percentage with a leading + when positive.
func FormatSignedPercent(v float64, decimals int) string {
	sign := ""
	if v > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.*f%%", sign, decimals, v)
}

// FormatPrice renders a price with two decimals.
func FormatPrice(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// FormatDeployedAgo renders elapsed time as "2d 3h ago", "4h 5m ago" or "7m ago".
func FormatDeployedAgo(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	minutes := int(elapsed / time.Minute)
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh ago", days, hours%24)
	case hours > 0:
		return fmt.Sprintf("%dh %dm ago", hours, minutes%60)
	default:
		return fmt.Sprintf("%dm ago", minutes)
	}
}

// RankClass returns the CSS class for a leaderboard position.
func RankClass(rank int) string {
	switch rank {
	case 1:
		return "rank-gold"
	case 2:
		return "rank-silver"
	case 3:
		return "rank-bronze"
	default:
		return "rank-default"
	}
}

// LiveWinRate is the win rate shown on live cards, derived from the series PnL.
func LiveWinRate(pnlPercent float64) float64 {
	return math.Min(99, 45+math.Abs(pnlPercent*2))
}

// StrategyLabel names a trader's strategy from its trend direction.
func StrategyLabel(direction string) string {
	label := MomentumBearish
	if direction == models.TrendUp {
		label = MomentumBullish
	}
	return titler.String(label) + " Strategy"
}
