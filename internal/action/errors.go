package action

import "errors"

// Domain errors for the action package.
var (
	// ErrArgumentCountMismatch is returned when an action is built with a
	// number of arguments that differs from its kind's arity.
	ErrArgumentCountMismatch = errors.New("action: argument count mismatch")

	// ErrUnknownKind is returned for a kind outside the handler set.
	ErrUnknownKind = errors.New("action: unknown kind")

	// ErrInvalidArgument is returned by a handler when an argument value is
	// out of range at invocation time.
	ErrInvalidArgument = errors.New("action: invalid argument")
)
