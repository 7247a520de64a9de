package action

import (
	"fmt"
	"time"
)

// Action is one step of a chain: a handler kind, its bound arguments and
// the delay armed on the timer before the step runs.
type Action struct {
	Kind  Kind
	Args  Args
	Delay time.Duration
}

// New builds an action, checking the argument count against the kind's arity.
func New(kind Kind, args ...int) (Action, error) {
	if !kind.Valid() {
		return Action{}, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
	if len(args) != kind.Arity() {
		return Action{}, fmt.Errorf("%w: %s expects %d, got %d",
			ErrArgumentCountMismatch, kind, kind.Arity(), len(args))
	}
	a, err := NewArgs(args...)
	if err != nil {
		return Action{}, err
	}
	return Action{Kind: kind, Args: a}, nil
}

// MustNew is New for static tables; it panics on a construction error.
func MustNew(kind Kind, args ...int) Action {
	a, err := New(kind, args...)
	if err != nil {
		panic(err)
	}
	return a
}

// After returns a copy of the action with the given lead-in delay.
// Negative delays are treated as zero.
func (a Action) After(d time.Duration) Action {
	if d < 0 {
		d = 0
	}
	a.Delay = d
	return a
}

// String formats the action as "kind(args) +delay".
func (a Action) String() string {
	if a.Delay > 0 {
		return fmt.Sprintf("%s%s +%s", a.Kind, a.Args, a.Delay)
	}
	return a.Kind.String() + a.Args.String()
}
