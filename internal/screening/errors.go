package screening

import "errors"

// Input contract violations. They are surfaced to the caller as-is and are
// never repaired by the engine.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingCriterion     = errors.New("missing criterion")
	ErrOutOfRangeScore      = errors.New("criterion score out of range")
)
