package domain

import "fmt"

// InsufficientDataError indicates the series is shorter than the strategy's
// declared minimum lookback. Fatal to the run, never retried.
type InsufficientDataError struct {
	Required  int
	Available int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d bars available, %d required", e.Available, e.Required)
}

// InvalidParameterError indicates a malformed or logically inconsistent
// configuration or strategy parameter. Fatal to the run; the optimizer skips
// the offending combination.
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Reason)
}

// DataIntegrityError indicates the input series itself is unusable
// (non-monotonic timestamps, NaN or non-positive prices). It points at an
// upstream data defect and aborts any sweep that encounters it.
type DataIntegrityError struct {
	Index  int
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity violation at bar %d: %s", e.Index, e.Reason)
}
