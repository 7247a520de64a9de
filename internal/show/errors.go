package show

import "errors"

// Domain errors for the show package.
var (
	// ErrInvalidShow is returned when a show file fails validation.
	ErrInvalidShow = errors.New("show: invalid")

	// ErrRunNotFound is returned when a run ID does not exist.
	ErrRunNotFound = errors.New("show: run not found")
)
