package pin

import "errors"

// Domain errors for the pin package.
var (
	// ErrInvalidPinReference is returned when a pin ID is not present in the bank.
	ErrInvalidPinReference = errors.New("pin: invalid pin reference")

	// ErrDuplicatePin is returned when adding a pin whose ID is already registered.
	ErrDuplicatePin = errors.New("pin: duplicate pin id")

	// ErrInputOnly is returned when a level is written to an input pin.
	// The write is ignored.
	ErrInputOnly = errors.New("pin: input-only pin")

	// ErrInvalidPin is returned when a pin definition is malformed.
	ErrInvalidPin = errors.New("pin: invalid definition")
)
