package pin

import (
	"fmt"
	"time"
)

// NoIndicator marks a pin without an associated indicator output.
const NoIndicator = -1

// Level is a two-state logical pin level.
type Level uint8

const (
	Low  Level = 0
	High Level = 1
)

// String returns "low" or "high".
func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// Invert returns the opposite level.
func (l Level) Invert() Level {
	if l == High {
		return Low
	}
	return High
}

// LevelOf converts an integer to a Level (non-zero is High).
func LevelOf(v int) Level {
	if v != 0 {
		return High
	}
	return Low
}

// Direction describes whether a pin drives or senses.
type Direction uint8

const (
	Output Direction = iota
	Input
)

// String returns "output" or "input".
func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// ParseDirection converts a show/config string to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "output", "out":
		return Output, nil
	case "input", "in":
		return Input, nil
	default:
		return Output, fmt.Errorf("%w: unknown direction %q", ErrInvalidPin, s)
	}
}

// Mode selects how the stored value is interpreted.
type Mode uint8

const (
	// ModeLogic stores a two-state level (0 or 1).
	ModeLogic Mode = iota
	// ModeRaw stores the raw integer last observed.
	ModeRaw
)

// String returns "logic" or "raw".
func (m Mode) String() string {
	if m == ModeRaw {
		return "raw"
	}
	return "logic"
}

// ParseMode converts a show/config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "logic":
		return ModeLogic, nil
	case "raw":
		return ModeRaw, nil
	default:
		return ModeLogic, fmt.Errorf("%w: unknown mode %q", ErrInvalidPin, s)
	}
}

// Pin is the last known state of one board pin.
//
// Direction and mode are fixed at construction. Only the value and the
// state-node cursor change over the pin's lifetime.
type Pin struct {
	id        int
	indicator int
	direction Direction
	mode      Mode
	value     int
	state     *StateNode
}

// New creates a pin. Pass NoIndicator when the pin has no indicator output.
func New(id, indicator int, direction Direction, mode Mode) (*Pin, error) {
	if id < 0 {
		return nil, fmt.Errorf("%w: negative id %d", ErrInvalidPin, id)
	}
	if indicator < NoIndicator || indicator == id {
		return nil, fmt.Errorf("%w: pin %d has invalid indicator %d", ErrInvalidPin, id, indicator)
	}
	return &Pin{
		id:        id,
		indicator: indicator,
		direction: direction,
		mode:      mode,
	}, nil
}

// ID returns the physical pin identifier.
func (p *Pin) ID() int { return p.id }

// Indicator returns the indicator output pin, or NoIndicator.
func (p *Pin) Indicator() int { return p.indicator }

// HasIndicator reports whether an indicator output is associated.
func (p *Pin) HasIndicator() bool { return p.indicator != NoIndicator }

// Direction returns the pin direction.
func (p *Pin) Direction() Direction { return p.direction }

// IsOutput reports whether the pin may be driven.
func (p *Pin) IsOutput() bool { return p.direction == Output }

// Mode returns the value mode.
func (p *Pin) Mode() Mode { return p.mode }

// SetLevel records a level written to the pin.
// Input pins are left untouched and ErrInputOnly is returned.
func (p *Pin) SetLevel(level Level) error {
	if p.direction == Input {
		return fmt.Errorf("%w: pin %d", ErrInputOnly, p.id)
	}
	p.value = int(level)
	return nil
}

// RecordValue stores a value observed by hardware polling.
// Logic pins normalise the value to 0 or 1.
func (p *Pin) RecordValue(v int) {
	if p.mode == ModeLogic {
		v = int(LevelOf(v))
	}
	p.value = v
}

// Level returns the last known logical level.
func (p *Pin) Level() Level { return LevelOf(p.value) }

// Value returns the last known raw value.
func (p *Pin) Value() int { return p.value }

// Attach sets the pin's state cursor to head. A nil head detaches.
func (p *Pin) Attach(head *StateNode) { p.state = head }

// State returns the current state node, if any.
func (p *Pin) State() (*StateNode, bool) {
	return p.state, p.state != nil
}

// AdvanceState moves the cursor to the next node and returns its dwell.
// It returns (0, false) when no state list is attached or the list has ended.
func (p *Pin) AdvanceState() (time.Duration, bool) {
	if p.state == nil || p.state.Next == nil {
		return 0, false
	}
	p.state = p.state.Next
	return p.state.Dwell, true
}

// Snapshot is a copy of a pin's observable fields.
type Snapshot struct {
	ID        int    `json:"id"`
	Indicator int    `json:"indicator"`
	Direction string `json:"direction"`
	Mode      string `json:"mode"`
	Value     int    `json:"value"`
	Level     string `json:"level"`
	State     *int   `json:"state,omitempty"`
}

// Snapshot copies the pin's current fields.
func (p *Pin) Snapshot() Snapshot {
	s := Snapshot{
		ID:        p.id,
		Indicator: p.indicator,
		Direction: p.direction.String(),
		Mode:      p.mode.String(),
		Value:     p.value,
		Level:     p.Level().String(),
	}
	if p.state != nil {
		st := p.state.State
		s.State = &st
	}
	return s
}
