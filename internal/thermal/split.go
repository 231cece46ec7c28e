package thermal

import (
	"errors"
	"fmt"
)

// Estimate is the outcome of fitting one heater's series.
//
// The boundary sample at Split belongs to both the heating and the cooling
// fit, so it is counted twice in the least-squares weighting.
type Estimate struct {
	Params Params `json:"params"`
	// Split is the last heating sample and the first cooling sample. It is
	// also the reported switch-off point.
	Split int `json:"split"`
	Peak  int `json:"peak"`
	// Advanced is set when the split moved past the peak to the first
	// post-peak decrease.
	Advanced bool `json:"advanced"`
	// CoolingApproximated is set when no cooling fit was obtained and
	// alpha_off was copied from alpha_on.
	CoolingApproximated bool       `json:"cooling_approximated"`
	CoolingErr          error      `json:"-"`
	Heating             HeatingFit `json:"heating"`
	Cooling             CoolingFit `json:"cooling"`
}

// SplitSelector locates the heating to cooling transition of a series and
// fits both phases around it.
type SplitSelector struct {
	Ambient float64
	Fit     FitConfig
}

type splitAttempt struct {
	split   int
	heating HeatingFit
	cooling CoolingFit
	heatErr error
	coolErr error
}

func (a splitAttempt) ok() bool { return a.heatErr == nil && a.coolErr == nil }

// Estimate fits heating and cooling parameters for series. The split starts at
// the global peak and may be revised once, to the first strict decrease after
// the peak, when the first candidate yields no usable fit.
func (s SplitSelector) Estimate(series Series) (Estimate, error) {
	peak, found := series.Peak()
	if !found {
		return Estimate{}, fmt.Errorf("%w: %w: every sample is missing", ErrUnfittableSeries, ErrInsufficientData)
	}

	chosen := s.attempt(series, peak)
	advanced := false
	if !chosen.ok() {
		if next, ok := series.firstDecreaseAfter(peak); ok {
			retry := s.attempt(series, next)
			if retry.ok() || (chosen.heatErr != nil && retry.heatErr == nil) {
				chosen, advanced = retry, true
			}
		}
	}
	if chosen.heatErr != nil {
		return Estimate{}, fmt.Errorf("%w: %w", ErrUnfittableSeries, chosen.heatErr)
	}

	est := Estimate{
		Params: Params{
			AlphaOn:  chosen.heating.AlphaOn,
			AlphaOff: chosen.cooling.AlphaOff,
			TMax:     chosen.heating.TMax,
			TAmbient: s.Ambient,
		},
		Split:    chosen.split,
		Peak:     peak,
		Advanced: advanced,
		Heating:  chosen.heating,
		Cooling:  chosen.cooling,
	}
	if chosen.coolErr != nil {
		est.Params.AlphaOff = est.Params.AlphaOn
		est.CoolingApproximated = true
		est.CoolingErr = chosen.coolErr
	}
	return est, nil
}

var errNotCooling = errors.New("segment does not start with a decrease")

func (s SplitSelector) attempt(series Series, split int) splitAttempt {
	a := splitAttempt{split: split}

	ht, hy := series.Usable(0, split)
	if fit, err := FitHeating(ht, hy, s.Ambient, s.Fit); err != nil {
		a.heatErr = &FitError{Phase: PhaseHeating, Err: err}
	} else {
		a.heating = fit
	}

	ct, cy := series.Usable(split, series.Len()-1)
	// a plateau right after the split means the heater was still on
	if len(cy) >= 3 && cy[1] >= cy[0] {
		a.coolErr = &FitError{Phase: PhaseCooling, Err: fmt.Errorf("%w: %w", ErrInsufficientData, errNotCooling)}
		return a
	}
	if fit, err := FitCooling(ct, cy, s.Ambient, s.Fit); err != nil {
		a.coolErr = &FitError{Phase: PhaseCooling, Err: err}
	} else {
		a.cooling = fit
	}
	return a
}
