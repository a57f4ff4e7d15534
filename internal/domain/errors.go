package domain

import "fmt"

// The error types below are data-quality and numerical conditions surfaced to
// the caller, not bugs. They carry the diagnostics the caller needs to act
// (minimum required counts, the method that was attempted) and are matched
// with errors.As.

// EmptyHistoryError indicates an asset had no cost events in the requested
// aggregation window.
type EmptyHistoryError struct {
	AssetID string
}

func (e *EmptyHistoryError) Error() string {
	return fmt.Sprintf("asset %s has no cost events in the requested window", e.AssetID)
}

// InsufficientHistoryError indicates a cost series is too short to fit a
// forecasting model.
type InsufficientHistoryError struct {
	AssetID  string
	Observed int
	Required int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("asset %s has insufficient cost history (%d observations, need at least %d)",
		e.AssetID, e.Observed, e.Required)
}

// InsufficientFailureDataError indicates too few failure observations to fit
// a Weibull model.
type InsufficientFailureDataError struct {
	AssetID  string
	Observed int
	Required int
}

func (e *InsufficientFailureDataError) Error() string {
	return fmt.Sprintf("asset %s has insufficient failure data (%d failures, need at least %d)",
		e.AssetID, e.Observed, e.Required)
}

// InvalidFailureDataError indicates malformed failure ages (zero, negative,
// or degenerate all-identical) that the caller must fix.
type InvalidFailureDataError struct {
	AssetID string
	Reason  string
}

func (e *InvalidFailureDataError) Error() string {
	return fmt.Sprintf("asset %s has invalid failure data: %s", e.AssetID, e.Reason)
}

// UnknownAssetError indicates a request referenced an asset id that is not
// registered in the equipment inventory.
type UnknownAssetError struct {
	AssetID string
}

func (e *UnknownAssetError) Error() string {
	return fmt.Sprintf("asset %s is not registered", e.AssetID)
}

// InvalidUsefulLifeError indicates a non-positive useful life was supplied to
// the depreciation engine.
type InvalidUsefulLifeError struct {
	AssetID    string
	UsefulLife int
}

func (e *InvalidUsefulLifeError) Error() string {
	return fmt.Sprintf("asset %s has invalid useful life %d (must be positive)", e.AssetID, e.UsefulLife)
}

// NoConvergenceError indicates a numerical fit or root-find did not converge.
// It is always surfaced with the method and the parameter range attempted,
// never silently defaulted.
type NoConvergenceError struct {
	Method     string
	Iterations int
	LowerBound float64
	UpperBound float64
}

func (e *NoConvergenceError) Error() string {
	return fmt.Sprintf("%s did not converge after %d iterations in [%g, %g]",
		e.Method, e.Iterations, e.LowerBound, e.UpperBound)
}
