package thermal

// OverrideFunc is told about every forced switch-off.
type OverrideFunc func(heater int, candidate, limit float64)

// Governor wraps one live-control tick with a hard temperature ceiling. It
// looks one second ahead and keeps no state between ticks, so a heater close
// to the limit may toggle every second.
type Governor struct {
	MaxTemp float64
	// Margin lowers the trip point to MaxTemp - Margin.
	Margin     float64
	OnOverride OverrideFunc
}

// Decision is the governed outcome of one tick.
type Decision struct {
	Temp       float64
	On         bool
	Overridden bool
	// Candidate is what the commanded state would have produced.
	Candidate float64
}

// Limit is the temperature at which an "on" command is refused.
func (g Governor) Limit() float64 { return g.MaxTemp - g.Margin }

// Step computes the next temperature of heater under the commanded state.
func (g Governor) Step(heater int, prev float64, on bool, p Params) Decision {
	candidate := Update(prev, on, p)
	if !on || candidate < g.Limit() {
		return Decision{Temp: candidate, On: on, Candidate: candidate}
	}
	if g.OnOverride != nil {
		g.OnOverride(heater, candidate, g.Limit())
	}
	return Decision{
		Temp:       Update(prev, false, p),
		On:         false,
		Overridden: true,
		Candidate:  candidate,
	}
}
