package thermal

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FitConfig bounds the nonlinear fits. KUpper is 2 for the two-phase fit and
// 1 for the historical single-coefficient fit.
type FitConfig struct {
	TMaxUpper     float64
	KUpper        float64
	KGuess        float64
	MaxIterations int
}

// DefaultFitConfig returns the bounds used unless configured otherwise.
func DefaultFitConfig() FitConfig {
	return FitConfig{
		TMaxUpper:     2000,
		KUpper:        2,
		KGuess:        1e-4,
		MaxIterations: 2000,
	}
}

func (c FitConfig) withDefaults() FitConfig {
	d := DefaultFitConfig()
	if c.TMaxUpper <= 0 {
		c.TMaxUpper = d.TMaxUpper
	}
	if c.KUpper <= 0 {
		c.KUpper = d.KUpper
	}
	if c.KGuess <= 0 {
		c.KGuess = d.KGuess
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	return c
}

// HeatingFit is the result of fitting T(t) = Tmax + (T0 - Tmax) e^{-k(t - t0)}.
type HeatingFit struct {
	AlphaOn    float64 `json:"alpha_on"`
	TMax       float64 `json:"t_max"`
	K          float64 `json:"k"`
	RSquared   float64 `json:"r_squared"`
	Iterations int     `json:"iterations"`
}

// CoolingFit is the result of fitting T(t) = Ta + (T0 - Ta) e^{-k(t - t0)}.
type CoolingFit struct {
	AlphaOff   float64 `json:"alpha_off"`
	K          float64 `json:"k"`
	RSquared   float64 `json:"r_squared"`
	Iterations int     `json:"iterations"`
}

var errDegenerate = errors.New("decay constant collapsed to zero")

// FitHeating estimates alpha_on and T_max from the heating segment.
// T0 and t0 are taken from the first sample; T_max is bounded below by the
// ambient temperature.
func FitHeating(times, temps []float64, ambient float64, cfg FitConfig) (HeatingFit, error) {
	if err := checkSegment(times, temps); err != nil {
		return HeatingFit{}, err
	}
	cfg = cfg.withDefaults()
	if ambient > cfg.TMaxUpper {
		return HeatingFit{}, fmt.Errorf("ambient %g above T_max bound %g", ambient, cfg.TMaxUpper)
	}

	t0, T0 := times[0], temps[0]
	residuals := func(x, r []float64, jac *mat.Dense) {
		tMax, k := x[0], x[1]
		for i := range times {
			dt := times[i] - t0
			e := math.Exp(-k * dt)
			r[i] = tMax + (T0-tMax)*e - temps[i]
			jac.Set(i, 0, 1-e)
			jac.Set(i, 1, -(T0-tMax)*dt*e)
		}
	}

	sol, err := solveBounded(boundedProblem{
		residuals:    residuals,
		observations: len(times),
		lower:        []float64{ambient, 0},
		upper:        []float64{cfg.TMaxUpper, cfg.KUpper},
	}, []float64{maxOf(temps), cfg.KGuess}, cfg.MaxIterations)
	if err != nil {
		return HeatingFit{}, err
	}

	tMax, k := sol.x[0], sol.x[1]
	if k <= 0 {
		return HeatingFit{}, fmt.Errorf("%w: %w", ErrFitDivergence, errDegenerate)
	}
	modeled := make([]float64, len(times))
	for i := range times {
		modeled[i] = tMax + (T0-tMax)*math.Exp(-k*(times[i]-t0))
	}
	return HeatingFit{
		AlphaOn:    AlphaFromK(k),
		TMax:       tMax,
		K:          k,
		RSquared:   rSquared(modeled, temps),
		Iterations: sol.iterations,
	}, nil
}

// FitCooling estimates alpha_off from the cooling segment. Only k is free;
// the curve decays toward the fixed ambient temperature.
func FitCooling(times, temps []float64, ambient float64, cfg FitConfig) (CoolingFit, error) {
	if err := checkSegment(times, temps); err != nil {
		return CoolingFit{}, err
	}
	cfg = cfg.withDefaults()

	t0, T0 := times[0], temps[0]
	residuals := func(x, r []float64, jac *mat.Dense) {
		k := x[0]
		for i := range times {
			dt := times[i] - t0
			e := math.Exp(-k * dt)
			r[i] = ambient + (T0-ambient)*e - temps[i]
			jac.Set(i, 0, -(T0-ambient)*dt*e)
		}
	}

	sol, err := solveBounded(boundedProblem{
		residuals:    residuals,
		observations: len(times),
		lower:        []float64{0},
		upper:        []float64{cfg.KUpper},
	}, []float64{cfg.KGuess}, cfg.MaxIterations)
	if err != nil {
		return CoolingFit{}, err
	}

	k := sol.x[0]
	if k <= 0 {
		return CoolingFit{}, fmt.Errorf("%w: %w", ErrFitDivergence, errDegenerate)
	}
	modeled := make([]float64, len(times))
	for i := range times {
		modeled[i] = ambient + (T0-ambient)*math.Exp(-k*(times[i]-t0))
	}
	return CoolingFit{
		AlphaOff:   AlphaFromK(k),
		K:          k,
		RSquared:   rSquared(modeled, temps),
		Iterations: sol.iterations,
	}, nil
}

func checkSegment(times, temps []float64) error {
	if len(times) != len(temps) {
		return fmt.Errorf("segment has %d times and %d temperatures", len(times), len(temps))
	}
	if len(times) < 3 {
		return fmt.Errorf("%w: got %d", ErrInsufficientData, len(times))
	}
	for i := range times {
		if !isFinite(times[i]) || !isFinite(temps[i]) {
			return fmt.Errorf("sample %d is not a finite number", i)
		}
	}
	return nil
}

// rSquared reports the coefficient of determination, 0 when it is undefined
// (flat observations).
func rSquared(modeled, observed []float64) float64 {
	r2 := stat.RSquaredFrom(modeled, observed, nil)
	if !isFinite(r2) {
		return 0
	}
	return r2
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		m = math.Max(m, x)
	}
	return m
}
