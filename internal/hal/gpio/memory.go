package gpio

import (
	"fmt"
	"sync"

	"github.com/nerrad567/secretbox-core/internal/pin"
)

// Write is one recorded pin write.
type Write struct {
	ID    int
	Level pin.Level
}

// Memory is an in-process Driver.
type Memory struct {
	mu      sync.Mutex
	outputs map[int]bool
	levels  map[int]pin.Level
	writes  []Write
	closed  bool
}

// NewMemory creates a driver with the given output and input pins, all low.
func NewMemory(outputs, inputs []int) *Memory {
	m := &Memory{
		outputs: make(map[int]bool, len(outputs)+len(inputs)),
		levels:  make(map[int]pin.Level, len(outputs)+len(inputs)),
	}
	for _, id := range outputs {
		m.outputs[id] = true
		m.levels[id] = pin.Low
	}
	for _, id := range inputs {
		m.outputs[id] = false
		m.levels[id] = pin.Low
	}
	return m
}

// Write sets an output pin.
func (m *Memory) Write(id int, level pin.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	out, ok := m.outputs[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPin, id)
	}
	if !out {
		return fmt.Errorf("%w: %d", ErrNotOutput, id)
	}
	m.levels[id] = level
	m.writes = append(m.writes, Write{ID: id, Level: level})
	return nil
}

// Read returns a pin's level.
func (m *Memory) Read(id int) (pin.Level, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return pin.Low, ErrClosed
	}
	level, ok := m.levels[id]
	if !ok {
		return pin.Low, fmt.Errorf("%w: %d", ErrUnknownPin, id)
	}
	return level, nil
}

// SetInput drives an input pin as if from outside the board.
func (m *Memory) SetInput(id int, level pin.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	out, ok := m.outputs[id]
	if !ok || out {
		return fmt.Errorf("%w: %d is not an input", ErrUnknownPin, id)
	}
	m.levels[id] = level
	return nil
}

// Writes returns every write so far, oldest first.
func (m *Memory) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}

// Close marks the driver closed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
