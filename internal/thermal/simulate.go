package thermal

import "fmt"

// Trajectory is one heater's temperature history: the initial temperature
// followed by one entry per simulated second. The last entry is the current
// temperature during live control.
type Trajectory []float64

// Last returns the current temperature.
func (t Trajectory) Last() float64 { return t[len(t)-1] }

// Schedule holds per-second commands, Schedule[second][heater].
type Schedule [][]bool

// ExpandSchedule holds each coarse row for stepSec seconds.
func ExpandSchedule(coarse [][]bool, stepSec int) Schedule {
	if stepSec < 1 {
		stepSec = 1
	}
	out := make(Schedule, 0, len(coarse)*stepSec)
	for _, row := range coarse {
		for i := 0; i < stepSec; i++ {
			out = append(out, row)
		}
	}
	return out
}

// Heaters returns the number of heater columns.
func (s Schedule) Heaters() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0])
}

// Column extracts the commands of one heater.
func (s Schedule) Column(heater int) []bool {
	out := make([]bool, len(s))
	for i, row := range s {
		if heater < len(row) {
			out[i] = row[heater]
		}
	}
	return out
}

// Simulate folds the one-second update over commands starting at initial.
func Simulate(initial float64, commands []bool, p Params) Trajectory {
	traj := make(Trajectory, 1, len(commands)+1)
	traj[0] = initial
	for _, on := range commands {
		traj = append(traj, Update(traj.Last(), on, p))
	}
	return traj
}

// Run simulates every heater of schedule independently.
func Run(initial []float64, schedule Schedule, params []Params) ([]Trajectory, error) {
	n := len(params)
	if len(initial) != n {
		return nil, fmt.Errorf("got %d initial temperatures for %d heaters", len(initial), n)
	}
	if schedule.Heaters() < n {
		return nil, fmt.Errorf("schedule has %d heater columns, need %d", schedule.Heaters(), n)
	}
	out := make([]Trajectory, n)
	for h := 0; h < n; h++ {
		out[h] = Simulate(initial[h], schedule.Column(h), params[h])
	}
	return out, nil
}

// ReconstructOptions controls how an observed series is replayed.
type ReconstructOptions struct {
	// StepsPerSample is the number of one-second updates between grid points.
	// Zero uses the series interval.
	StepsPerSample int
	// Reseed starts each interval from the observed value when there is one.
	// Across gaps the last modeled value is carried forward either way.
	Reseed bool
}

// Reconstruct models observed on its own grid. commands[j] is the heater state
// between samples j and j+1. Entries before the first observed value are left
// missing.
func Reconstruct(observed Series, commands []bool, p Params, opts ReconstructOptions) Series {
	steps := opts.StepsPerSample
	if steps <= 0 {
		steps = observed.IntervalSec
	}
	out := Series{IntervalSec: observed.IntervalSec, Samples: make([]Sample, observed.Len())}
	for i, smp := range observed.Samples {
		out.Samples[i] = Sample{OffsetSec: smp.OffsetSec, Missing: true}
	}

	first, ok := observed.FirstPresent()
	if !ok {
		return out
	}
	out.Samples[first] = Sample{OffsetSec: observed.Samples[first].OffsetSec, TempC: observed.Samples[first].TempC}

	for j := first + 1; j < observed.Len(); j++ {
		seed := out.Samples[j-1].TempC
		if opts.Reseed && !observed.Samples[j-1].Missing {
			seed = observed.Samples[j-1].TempC
		}
		on := j-1 < len(commands) && commands[j-1]
		out.Samples[j].TempC = Advance(seed, on, p, steps)
		out.Samples[j].Missing = false
	}
	return out
}

// SwitchOffCommands returns n interval commands that are on before switchOff
// and off from there on.
func SwitchOffCommands(n, switchOff int) []bool {
	out := make([]bool, n)
	for i := 0; i < n && i < switchOff; i++ {
		out[i] = true
	}
	return out
}
