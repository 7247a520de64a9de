package timer

import "errors"

// Domain errors for the timer package.
var (
	// ErrPoolExhausted is returned by Claim when every instance is in use.
	ErrPoolExhausted = errors.New("timer: pool exhausted")

	// ErrNotClaimed is returned when an operation names an instance that is
	// out of range or not currently claimed.
	ErrNotClaimed = errors.New("timer: instance not claimed")

	// ErrInvalidSize is returned when a pool is created with no instances.
	ErrInvalidSize = errors.New("timer: invalid pool size")
)
