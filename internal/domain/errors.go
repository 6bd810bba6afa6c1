package domain

import (
	"errors"
	"fmt"
)

// Error categories. Specific errors wrap exactly one category so callers
// can classify with errors.Is.
var (
	// ErrInput marks malformed or inconsistent caller input.
	ErrInput = errors.New("input error")
	// ErrDataQuality marks data that is well-formed but cannot support the analysis.
	ErrDataQuality = errors.New("data quality error")
	// ErrProviderUnavailable marks a series that could not be fetched.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// Input errors.
var (
	ErrEmptyInput       = fmt.Errorf("%w: empty input", ErrInput)
	ErrMalformedSeries  = fmt.Errorf("%w: malformed series", ErrInput)
	ErrShapeMismatch    = fmt.Errorf("%w: shape mismatch", ErrInput)
	ErrInvalidInput     = fmt.Errorf("%w: invalid value", ErrInput)
	ErrMissingColumn    = fmt.Errorf("%w: missing column", ErrInput)
	ErrInvalidParameter = fmt.Errorf("%w: invalid parameter", ErrInput)
)

// Data quality errors.
var (
	ErrUndefinedCorrelation = fmt.Errorf("%w: undefined correlation", ErrDataQuality)
	ErrDegenerateSplit      = fmt.Errorf("%w: degenerate split", ErrDataQuality)
	ErrUndefinedAUC         = fmt.Errorf("%w: undefined AUC", ErrDataQuality)
	ErrSingleClass          = fmt.Errorf("%w: single class labels", ErrDataQuality)
)

// NonConvergenceWarning is attached to a fitted model when the optimizer
// stopped before meeting its convergence criterion. The model is still usable.
type NonConvergenceWarning struct {
	Iterations int    // iterations performed
	Cap        int    // configured iteration cap
	Reason     string // optimizer status
}

// String implements fmt.Stringer.
func (w *NonConvergenceWarning) String() string {
	return fmt.Sprintf("optimizer did not converge after %d/%d iterations: %s", w.Iterations, w.Cap, w.Reason)
}
