// Package gpio is the hardware boundary for digital pins.
//
// Two drivers are provided. Memory keeps levels in a map and records every
// write; it backs benches, offline show checks and tests. RPIO drives the
// Raspberry Pi GPIO block through /dev/gpiomem (BCM numbering) and is only
// built on Linux without the nogpio tag.
package gpio

import (
	"errors"

	"github.com/nerrad567/secretbox-core/internal/pin"
)

// Driver reads and writes digital pins.
type Driver interface {
	Write(id int, level pin.Level) error
	Read(id int) (pin.Level, error)
	Close() error
}

// Domain errors for the gpio package.
var (
	// ErrUnknownPin is returned for a pin that was not configured.
	ErrUnknownPin = errors.New("gpio: pin not configured")

	// ErrNotOutput is returned when writing a pin configured as input.
	ErrNotOutput = errors.New("gpio: pin is not an output")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("gpio: driver closed")

	// ErrUnsupported is returned when the hardware driver is not built in.
	ErrUnsupported = errors.New("gpio: hardware driver not available in this build")
)
