package analytics

import "errors"

var (
	// ErrInsufficientData is returned when a calculation is asked for with
	// fewer observations than it requires. Callers treat it as "no result",
	// never as a failure.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrSingularDesign is returned when the regressor has zero variance
	ErrSingularDesign = errors.New("singular design")
	// ErrNoMeanReversion is returned when an AR(1) fit finds no
	// mean-reverting dynamics (theta outside (0, 1))
	ErrNoMeanReversion = errors.New("no mean reversion")
)
