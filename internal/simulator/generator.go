package simulator

import "time"

// Generate produces a cold-start series of p.Count samples spaced
// SampleInterval apart, the newest one stamped SampleInterval before now.
func Generate(p Params, rnd Rand, now time.Time) Series {
	if p.Count <= 0 {
		return Series{}
	}

	profile := p.Personality.Profile()
	series := make(Series, 0, p.Count)
	value := p.StartValue

	for i := p.Count; i > 0; i-- {
		change := (rnd.Float64()-0.5)*p.Volatility*profile.VolatilityMultiplier + profile.TrendBias*p.Volatility
		if rnd.Float64() < ShockProbability {
			change *= ShockMultiplier
		}
		value += change

		if rnd.Float64() < MomentumProbability {
			value += change * MomentumFactor
		}
		value = floor(value)

		series = append(series, DataPoint{
			Time:  millis(now.Add(-time.Duration(i) * SampleInterval)),
			Value: value,
		})
	}
	return series
}
