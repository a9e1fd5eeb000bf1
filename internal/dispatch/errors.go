package dispatch

import "errors"

// ErrDuplicateRequest marks a submission whose request id was already
// processed within the dedup window. Consumers acknowledge it silently.
var ErrDuplicateRequest = errors.New("duplicate dispatch request")

// ErrNotCurrent marks a signal for a candidate that is no longer the offered
// one; a benign "too late", not a fault.
var ErrNotCurrent = errors.New("candidate no longer current")

// ValidationError fails fast on malformed intake; the consumer dead-letters
// it rather than retrying.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "missing required field: " + e.Field
}
