//go:build linux && !nogpio

package gpio

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/nerrad567/secretbox-core/internal/pin"
)

// RPIO drives Raspberry Pi GPIO pins by BCM number.
type RPIO struct {
	mu      sync.Mutex
	outputs map[int]rpio.Pin
	inputs  map[int]rpio.Pin
	closed  bool
}

// OpenRPIO maps GPIO memory and configures pin directions. Outputs start low.
func OpenRPIO(outputs, inputs []int) (*RPIO, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("opening gpio memory: %w", err)
	}

	r := &RPIO{
		outputs: make(map[int]rpio.Pin, len(outputs)),
		inputs:  make(map[int]rpio.Pin, len(inputs)),
	}
	for _, id := range outputs {
		p := rpio.Pin(id) //nolint:gosec // BCM numbers are small
		p.Output()
		p.Low()
		r.outputs[id] = p
	}
	for _, id := range inputs {
		p := rpio.Pin(id) //nolint:gosec // BCM numbers are small
		p.Input()
		r.inputs[id] = p
	}
	return r, nil
}

// Write drives an output pin.
func (r *RPIO) Write(id int, level pin.Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	p, ok := r.outputs[id]
	if !ok {
		if _, in := r.inputs[id]; in {
			return fmt.Errorf("%w: %d", ErrNotOutput, id)
		}
		return fmt.Errorf("%w: %d", ErrUnknownPin, id)
	}
	if level == pin.High {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

// Read samples a pin.
func (r *RPIO) Read(id int) (pin.Level, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return pin.Low, ErrClosed
	}
	p, ok := r.inputs[id]
	if !ok {
		if p, ok = r.outputs[id]; !ok {
			return pin.Low, fmt.Errorf("%w: %d", ErrUnknownPin, id)
		}
	}
	if p.Read() == rpio.High {
		return pin.High, nil
	}
	return pin.Low, nil
}

// Close drives outputs low and unmaps GPIO memory.
func (r *RPIO) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	for _, p := range r.outputs {
		p.Low()
	}
	r.closed = true
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("closing gpio memory: %w", err)
	}
	return nil
}
