package thermal

import (
	"errors"
	"fmt"
	"math"
)

// Params are the thermal constants of one heater. AlphaOn and AlphaOff are
// per-second coefficients; a single-coefficient heater has AlphaOn == AlphaOff.
type Params struct {
	AlphaOn  float64 `json:"alpha_on"`
	AlphaOff float64 `json:"alpha_off"`
	TMax     float64 `json:"t_max"`
	TAmbient float64 `json:"t_ambient"`
}

var errInvalidParams = errors.New("invalid thermal parameters")

// SingleAlpha builds parameters for a heater described by one coefficient.
func SingleAlpha(alpha, tMax, tAmbient float64) Params {
	return Params{AlphaOn: alpha, AlphaOff: alpha, TMax: tMax, TAmbient: tAmbient}
}

// Validate checks parameters loaded from an external source before they drive
// a live schedule.
func (p Params) Validate() error {
	switch {
	case !(p.AlphaOn > 0 && p.AlphaOn <= 1):
		return fmt.Errorf("%w: alpha_on %g not in (0,1]", errInvalidParams, p.AlphaOn)
	case !(p.AlphaOff > 0 && p.AlphaOff <= 1):
		return fmt.Errorf("%w: alpha_off %g not in (0,1]", errInvalidParams, p.AlphaOff)
	case math.IsNaN(p.TMax) || math.IsNaN(p.TAmbient):
		return fmt.Errorf("%w: temperatures must be numbers", errInvalidParams)
	case p.TAmbient > p.TMax:
		return fmt.Errorf("%w: t_ambient %g above t_max %g", errInvalidParams, p.TAmbient, p.TMax)
	}
	return nil
}

// Update advances the temperature by exactly one second.
func Update(prev float64, on bool, p Params) float64 {
	target, alpha := p.TAmbient, p.AlphaOff
	if on {
		target, alpha = p.TMax, p.AlphaOn
	}
	if alpha == 1 {
		return target
	}
	next := prev + alpha*(target-prev)
	// rounding must not carry the value past its target
	if (prev <= target && next > target) || (prev >= target && next < target) {
		return target
	}
	return next
}

// Advance runs Update n times under a constant command. Coarser steps are
// always built from the one-second recurrence, never by rescaling alpha.
func Advance(prev float64, on bool, p Params, n int) float64 {
	for i := 0; i < n; i++ {
		prev = Update(prev, on, p)
	}
	return prev
}

// AlphaFromK converts a continuous decay constant (1/s) to the per-second
// discrete coefficient 1 - exp(-k).
func AlphaFromK(k float64) float64 {
	return -math.Expm1(-k)
}

// KFromAlpha is the inverse of AlphaFromK.
func KFromAlpha(alpha float64) float64 {
	return -math.Log1p(-alpha)
}
