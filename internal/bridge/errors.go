package bridge

import "errors"

// Domain errors for the bridge package.
var (
	// ErrEmptyFrame is returned for a frame with no command code.
	ErrEmptyFrame = errors.New("bridge: empty frame")

	// ErrUnknownPolicy is returned when parsing an unrecognised policy name.
	ErrUnknownPolicy = errors.New("bridge: unknown enqueue policy")

	// ErrUnknownOperation is returned for a chain control verb other than
	// arm, disarm or reset.
	ErrUnknownOperation = errors.New("bridge: unknown chain operation")

	// ErrNoTarget is returned when the append policy has no target chain.
	ErrNoTarget = errors.New("bridge: append policy needs a target chain")
)
