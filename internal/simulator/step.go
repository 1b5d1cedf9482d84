package simulator

import "time"

// Step appends one live sample and evicts the oldest, returning the new state.
// The input state is not modified. An empty window is returned unchanged.
func Step(s State, p Params, rnd Rand, now time.Time) State {
	if len(s.Window) == 0 {
		return s
	}

	profile := p.Personality.Profile()
	trend := s.Trend
	if rnd.Float64() < TrendShiftProbability {
		trend = (rnd.Float64()-0.5)*TrendRange + profile.TrendBias
	}

	noise := (rnd.Float64() - 0.5) * p.Volatility * profile.VolatilityMultiplier
	momentum := (trend + profile.TrendBias) * p.Volatility
	if rnd.Float64() < ShockProbability {
		noise *= ShockMultiplier
	}

	last := s.Window.Last()
	ts := millis(now)
	if ts < last.Time {
		ts = last.Time
	}

	window := make(Series, 0, len(s.Window))
	window = append(window, s.Window[1:]...)
	window = append(window, DataPoint{Time: ts, Value: floor(last.Value + noise + momentum)})

	return State{Window: window, Trend: trend}
}
