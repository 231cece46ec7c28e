package sheet

import (
	"errors"
	"fmt"
)

// ErrMissingConfiguration matches every MissingConfigurationError.
var ErrMissingConfiguration = errors.New("missing configuration")

// MissingConfigurationError reports a required label row, or a required cell
// of that row, that the control sheet lacks. Heater is -1 when the whole row
// is absent.
type MissingConfigurationError struct {
	Label  string
	Heater int
}

func (e *MissingConfigurationError) Error() string {
	if e.Heater < 0 {
		return fmt.Sprintf("missing configuration: no %q row", e.Label)
	}
	return fmt.Sprintf("missing configuration: no %q value for heater %d", e.Label, e.Heater)
}

func (e *MissingConfigurationError) Is(target error) bool {
	return target == ErrMissingConfiguration
}

// CellError is a measurement cell that is not a number. Row and Column are
// one-based sheet coordinates.
type CellError struct {
	Row    int
	Column int
	Value  string
	Err    error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("row %d column %d: %q is not a number: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }
