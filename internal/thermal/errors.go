package thermal

import (
	"errors"
	"fmt"
)

// Fitting failures. All of them are recoverable for a single heater: batch
// estimation records the error and moves on to the next series.
var (
	ErrInsufficientData = errors.New("insufficient data: at least 3 usable samples are required")
	ErrFitDivergence    = errors.New("fit did not converge within bounds")
	ErrUnfittableSeries = errors.New("series has no usable split point")
)

// Phase names the segment of a series a fit was run on.
type Phase string

const (
	PhaseHeating Phase = "heating"
	PhaseCooling Phase = "cooling"
)

// FitError ties a fitting failure to the phase that produced it.
type FitError struct {
	Phase Phase
	Err   error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%s fit: %v", e.Phase, e.Err)
}

func (e *FitError) Unwrap() error { return e.Err }
