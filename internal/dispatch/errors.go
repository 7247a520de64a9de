package dispatch

import "errors"

// Domain errors for the dispatch package.
var (
	// ErrNotFound is returned for a command code with no table entry.
	ErrNotFound = errors.New("dispatch: command not found")

	// ErrPayloadLengthMismatch is returned when a payload's length differs
	// from the entry's declared argument bytes. No action is constructed.
	ErrPayloadLengthMismatch = errors.New("dispatch: payload length mismatch")

	// ErrDuplicateCode is returned when two entries share a command code.
	ErrDuplicateCode = errors.New("dispatch: duplicate command code")

	// ErrInvalidEntry is returned for an entry with an unsupported field
	// width or a field count that disagrees with its kind's arity.
	ErrInvalidEntry = errors.New("dispatch: invalid entry")
)
