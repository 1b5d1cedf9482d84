package simulator

import (
	"math"
	"strings"
	"time"

	"github.com/irfndi/claw-quants/internal/utils"
)

const (
	// Epsilon is the floor applied to every generated or updated value.
	Epsilon = 0.01
	// DefaultWindow is the number of samples a card chart shows.
	DefaultWindow = 50
	// SampleInterval is the virtual spacing between cold-start samples.
	SampleInterval = time.Minute
	// TickInterval is the wall-clock period of a live series.
	TickInterval = time.Second
	// ResumeGapThreshold is the largest gap between the last stored sample and
	// now that is resumed without shifting timestamps.
	ResumeGapThreshold = time.Minute

	ShockProbability      = 0.02
	ShockMultiplier       = 3.0
	MomentumProbability   = 0.2
	MomentumFactor        = 2.0
	TrendShiftProbability = 0.05
	TrendRange            = 0.5
)

// Rand is the source of uniform draws in [0, 1). *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// DataPoint is one sample of a series. Time is unix milliseconds.
type DataPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// Series is an ordered, fixed-length window of samples.
type Series []DataPoint

// First returns the oldest sample, or the zero value for an empty series.
func (s Series) First() DataPoint {
	if len(s) == 0 {
		return DataPoint{}
	}
	return s[0]
}

// Last returns the newest sample, or the zero value for an empty series.
func (s Series) Last() DataPoint {
	if len(s) == 0 {
		return DataPoint{}
	}
	return s[len(s)-1]
}

// Values returns the sample values in order.
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}

// Personality is the qualitative label that scales volatility and bias.
type Personality string

const (
	Stable   Personality = "stable"
	Volatile Personality = "volatile"
	Bullish  Personality = "bullish"
	Bearish  Personality = "bearish"
)

// Personalities lists every valid personality.
var Personalities = []Personality{Stable, Volatile, Bullish, Bearish}

// Profile holds the multipliers a personality applies to the walk.
type Profile struct {
	VolatilityMultiplier float64
	TrendBias            float64
}

var profiles = map[Personality]Profile{
	Stable:   {VolatilityMultiplier: 1.0, TrendBias: 0},
	Volatile: {VolatilityMultiplier: 2.5, TrendBias: 0},
	Bullish:  {VolatilityMultiplier: 1.0, TrendBias: 0.05},
	Bearish:  {VolatilityMultiplier: 1.0, TrendBias: -0.05},
}

// Profile returns the multipliers for p. Unknown labels behave like Stable.
func (p Personality) Profile() Profile {
	if profile, ok := profiles[p]; ok {
		return profile
	}
	return profiles[Stable]
}

// ParsePersonality parses a label case-insensitively. The empty string is Stable.
func ParsePersonality(s string) (Personality, error) {
	label := Personality(strings.ToLower(strings.TrimSpace(s)))
	if label == "" {
		return Stable, nil
	}
	if _, ok := profiles[label]; !ok {
		return "", utils.NewValidationErrorf("unknown personality %q", s)
	}
	return label, nil
}

// Params are the inputs a visual card provides to its series.
type Params struct {
	StartValue  float64
	Volatility  float64
	Personality Personality
	Count       int
}

// DefaultParams returns the parameters used when a caller supplies none.
func DefaultParams() Params {
	return Params{
		StartValue:  100,
		Volatility:  2,
		Personality: Stable,
		Count:       DefaultWindow,
	}
}

// Validate reports the first invalid field.
func (p Params) Validate() error {
	if math.IsNaN(p.StartValue) || math.IsInf(p.StartValue, 0) || p.StartValue <= 0 {
		return utils.NewValidationErrorf("start value must be a positive number, got %v", p.StartValue)
	}
	if math.IsNaN(p.Volatility) || math.IsInf(p.Volatility, 0) || p.Volatility < 0 {
		return utils.NewValidationErrorf("volatility must be a non-negative number, got %v", p.Volatility)
	}
	if p.Count < 2 {
		return utils.NewValidationErrorf("count must be at least 2, got %d", p.Count)
	}
	if _, ok := profiles[p.Personality]; !ok {
		return utils.NewValidationErrorf("unknown personality %q", p.Personality)
	}
	return nil
}

// State is everything a live series carries from one tick to the next.
type State struct {
	Window Series  `json:"data"`
	Trend  float64 `json:"trend"`
}

// CurrentPrice is the value of the newest sample.
func (s State) CurrentPrice() float64 {
	return s.Window.Last().Value
}

// PnLPercent is the change of the newest sample relative to the oldest one.
func (s State) PnLPercent() float64 {
	start := s.Window.First().Value
	if start == 0 {
		return 0
	}
	return (s.CurrentPrice() - start) / start * 100
}

// Direction is "up" when the newest sample is above the oldest one.
func (s State) Direction() string {
	if s.CurrentPrice() > s.Window.First().Value {
		return "up"
	}
	return "down"
}

func floor(v float64) float64 {
	return math.Max(Epsilon, v)
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}
