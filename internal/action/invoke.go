package action

import (
	"fmt"
	"time"

	"github.com/nerrad567/secretbox-core/internal/pin"
)

// OutcomeKind tells the chain how to proceed after a handler runs.
type OutcomeKind uint8

const (
	OutcomeContinue OutcomeKind = iota
	OutcomeTerminate
	OutcomeReschedule
	OutcomeJump
)

// String returns the outcome kind name.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeContinue:
		return "continue"
	case OutcomeTerminate:
		return "terminate"
	case OutcomeReschedule:
		return "reschedule"
	case OutcomeJump:
		return "jump"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(k))
	}
}

// Outcome is a handler's verdict. Delay is set only for reschedules and
// Target only for jumps.
type Outcome struct {
	Kind   OutcomeKind
	Delay  time.Duration
	Target int
}

var (
	// Continue advances to the next action.
	Continue = Outcome{Kind: OutcomeContinue}
	// Terminate completes the chain immediately.
	Terminate = Outcome{Kind: OutcomeTerminate}
)

// Reschedule re-runs the current action after d.
func Reschedule(d time.Duration) Outcome {
	return Outcome{Kind: OutcomeReschedule, Delay: d}
}

// Jump moves the cursor to target.
func Jump(target int) Outcome {
	return Outcome{Kind: OutcomeJump, Target: target}
}

// String formats the outcome for logs.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeReschedule:
		return fmt.Sprintf("reschedule(%s)", o.Delay)
	case OutcomeJump:
		return fmt.Sprintf("jump(%d)", o.Target)
	default:
		return o.Kind.String()
	}
}

// Context is what a handler may see and touch while it runs.
type Context interface {
	// Cursor is the index of the action being invoked.
	Cursor() int
	// Len is the number of actions in the chain.
	Len() int
	// Attempt counts how many times the current step has rescheduled.
	Attempt() int

	SetPin(id int, level pin.Level) error
	TogglePin(id int) error
	PlaySound(id int, d time.Duration) error
}

// Invoke runs the handler for a. A non-nil error is a runtime fault; the
// returned Outcome is then Continue.
func Invoke(a Action, ctx Context) (Outcome, error) {
	if a.Args.Len() != a.Kind.Arity() {
		return Continue, fmt.Errorf("%w: %s has %d arguments", ErrArgumentCountMismatch, a.Kind, a.Args.Len())
	}

	switch a.Kind {
	case SetPin:
		level := a.Args.At(1)
		if level != 0 && level != 1 {
			return Continue, fmt.Errorf("%w: level %d for pin %d", ErrInvalidArgument, level, a.Args.At(0))
		}
		return Continue, ctx.SetPin(a.Args.At(0), pin.Level(level)) //nolint:gosec // 0 or 1

	case TogglePin:
		return Continue, ctx.TogglePin(a.Args.At(0))

	case PlaySound:
		ms := a.Args.At(1)
		if ms < 0 {
			return Continue, fmt.Errorf("%w: negative duration %d", ErrInvalidArgument, ms)
		}
		return Continue, ctx.PlaySound(a.Args.At(0), time.Duration(ms)*time.Millisecond)

	case Wait:
		ms := a.Args.At(0)
		if ms < 0 {
			return Continue, fmt.Errorf("%w: negative wait %d", ErrInvalidArgument, ms)
		}
		if ctx.Attempt() == 0 {
			return Reschedule(time.Duration(ms) * time.Millisecond), nil
		}
		return Continue, nil

	case Branch:
		return Jump(a.Args.At(0)), nil

	case Halt:
		return Terminate, nil

	default:
		return Continue, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(a.Kind))
	}
}
