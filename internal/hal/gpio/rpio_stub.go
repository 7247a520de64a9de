//go:build !linux || nogpio

package gpio

import "github.com/nerrad567/secretbox-core/internal/pin"

// RPIO is unavailable in this build.
type RPIO struct{}

// OpenRPIO always fails with ErrUnsupported.
func OpenRPIO(_, _ []int) (*RPIO, error) {
	return nil, ErrUnsupported
}

func (*RPIO) Write(int, pin.Level) error { return ErrUnsupported }

func (*RPIO) Read(int) (pin.Level, error) { return pin.Low, ErrUnsupported }

func (*RPIO) Close() error { return nil }
