package services

import (
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"

	"github.com/irfndi/claw-quants/internal/simulator"
)

// Indicator periods used for card analytics.
const (
	SMAPeriod = 10
	EMAPeriod = 10
	RSIPeriod = 14

	rsiOverbought = 60.0
	rsiOversold   = 40.0
)

// Momentum labels.
const (
	MomentumBullish = "bullish"
	MomentumBearish = "bearish"
	MomentumNeutral = "neutral"
)

// IndicatorValue is the latest reading of one indicator.
type IndicatorValue struct {
	Name   string          `json:"name"`
	Period int             `json:"period"`
	Value  decimal.Decimal `json:"value"`
}

// SeriesAnalytics summarizes a window of samples.
type SeriesAnalytics struct {
	Samples    int              `json:"samples"`
	Open       decimal.Decimal  `json:"open"`
	Last       decimal.Decimal  `json:"last"`
	High       decimal.Decimal  `json:"high"`
	Low        decimal.Decimal  `json:"low"`
	ChangePct  decimal.Decimal  `json:"change_pct"`
	Indicators []IndicatorValue `json:"indicators"`
	Momentum   string           `json:"momentum"`
}

// AnalyzeSeries computes the indicator summary for series. Indicators whose
// period exceeds the window are omitted.
func AnalyzeSeries(series simulator.Series) SeriesAnalytics {
	result := SeriesAnalytics{
		Samples:    len(series),
		Indicators: []IndicatorValue{},
		Momentum:   MomentumNeutral,
	}
	if len(series) == 0 {
		return result
	}

	prices := series.Values()
	high, low := prices[0], prices[0]
	for _, p := range prices {
		high = math.Max(high, p)
		low = math.Min(low, p)
	}
	state := simulator.State{Window: series}

	result.Open = toDecimal(series.First().Value)
	result.Last = toDecimal(series.Last().Value)
	result.High = toDecimal(high)
	result.Low = toDecimal(low)
	result.ChangePct = decimal.NewFromFloat(state.PnLPercent()).Round(2)

	var sma, rsi float64
	var hasSMA, hasRSI bool

	if v, ok := lastSMA(prices, SMAPeriod); ok {
		sma, hasSMA = v, true
		result.Indicators = append(result.Indicators, indicatorValue("SMA", SMAPeriod, v))
	}
	if v, ok := lastEMA(prices, EMAPeriod); ok {
		result.Indicators = append(result.Indicators, indicatorValue("EMA", EMAPeriod, v))
	}
	if v, ok := lastRSI(prices, RSIPeriod); ok {
		rsi, hasRSI = v, true
		result.Indicators = append(result.Indicators, indicatorValue("RSI", RSIPeriod, v))
	}

	result.Momentum = momentumLabel(series.Last().Value, sma, hasSMA, rsi, hasRSI)
	return result
}

func momentumLabel(last, sma float64, hasSMA bool, rsi float64, hasRSI bool) string {
	score := 0
	if hasRSI {
		switch {
		case rsi >= rsiOverbought:
			score++
		case rsi <= rsiOversold:
			score--
		}
	}
	if hasSMA {
		switch {
		case last > sma:
			score++
		case last < sma:
			score--
		}
	}

	switch {
	case score >= 2:
		return MomentumBullish
	case score <= -2:
		return MomentumBearish
	default:
		return MomentumNeutral
	}
}

func lastSMA(prices []float64, period int) (float64, bool) {
	if len(prices) < period {
		return 0, false
	}
	sma := trend.NewSmaWithPeriod[float64](period)
	return lastFinite(helper.ChanToSlice(sma.Compute(helper.SliceToChan(prices))))
}

func lastEMA(prices []float64, period int) (float64, bool) {
	if len(prices) < period {
		return 0, false
	}
	ema := trend.NewEmaWithPeriod[float64](period)
	return lastFinite(helper.ChanToSlice(ema.Compute(helper.SliceToChan(prices))))
}

func lastRSI(prices []float64, period int) (float64, bool) {
	if len(prices) < period+1 {
		return 0, false
	}
	rsi := momentum.NewRsiWithPeriod[float64](period)
	return lastFinite(helper.ChanToSlice(rsi.Compute(helper.SliceToChan(prices))))
}

func lastFinite(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	v := values[len(values)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func indicatorValue(name string, period int, v float64) IndicatorValue {
	return IndicatorValue{
		Name:   fmt.Sprintf("%s_%d", name, period),
		Period: period,
		Value:  toDecimal(v),
	}
}

func toDecimal(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(4)
}
