package chain

import (
	"fmt"
	"time"

	"github.com/nerrad567/secretbox-core/internal/action"
	"github.com/nerrad567/secretbox-core/internal/pin"
	"github.com/nerrad567/secretbox-core/internal/timer"
)

// State is the lifecycle state of a chain.
type State uint8

const (
	// Idle chains hold no timer. The cursor is 0.
	Idle State = iota
	// Armed chains hold a timer and wait for its expiry.
	Armed
	// Completed chains ran to the end or were terminated. They stay
	// completed until Reset.
	Completed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

const noTimer = -1

// Outputs is the output boundary a running step may drive.
type Outputs interface {
	SetPin(id int, level pin.Level) error
	TogglePin(id int) error
	PlaySound(id int, d time.Duration) error
}

// Chain is an ordered sequence of actions advanced by timer expiry.
//
// A Chain is not safe for concurrent use; the Engine serialises access.
type Chain struct {
	name    string
	actions []action.Action

	state   State
	cursor  int
	timerID int
	attempt int

	faults    int
	lastFault error
}

// New creates an idle chain owning a copy of actions.
func New(name string, actions ...action.Action) *Chain {
	owned := make([]action.Action, len(actions))
	copy(owned, actions)
	return &Chain{
		name:    name,
		actions: owned,
		timerID: noTimer,
	}
}

// Name returns the chain name.
func (c *Chain) Name() string { return c.name }

// State returns the lifecycle state.
func (c *Chain) State() State { return c.state }

// Cursor returns the index of the next action to run.
func (c *Chain) Cursor() int { return c.cursor }

// Len returns the number of actions.
func (c *Chain) Len() int { return len(c.actions) }

// TimerID returns the claimed timer instance, if any.
func (c *Chain) TimerID() (int, bool) {
	return c.timerID, c.timerID != noTimer
}

// Faults returns the number of faults recorded since the chain was last armed.
func (c *Chain) Faults() int { return c.faults }

// Arm claims a timer and starts it with the first action's delay.
//
// An armed chain returns ErrAlreadyArmed and keeps its claim, cursor and
// timer sequence. A completed chain must be Reset first. An empty chain
// completes without claiming a timer.
func (c *Chain) Arm(pool *timer.Pool) error {
	switch c.state {
	case Armed:
		return fmt.Errorf("%w: %s", ErrAlreadyArmed, c.name)
	case Completed:
		return fmt.Errorf("%w: %s has completed", ErrNotIdle, c.name)
	}

	c.cursor = 0
	c.attempt = 0
	c.faults = 0
	c.lastFault = nil

	if len(c.actions) == 0 {
		c.state = Completed
		return nil
	}

	id, err := pool.Claim()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTimerPoolExhausted, err)
	}
	c.timerID = id
	c.state = Armed

	if err := pool.Start(id, c.actions[0].Delay); err != nil {
		c.release(pool)
		c.state = Idle
		return fmt.Errorf("start timer: %w", err)
	}
	return nil
}

// StepResult describes one expiry handled by a chain.
type StepResult struct {
	// Ran is false when the chain was not armed and nothing happened.
	Ran     bool
	Index   int
	Action  action.Action
	Outcome action.Outcome
	// Err is the fault recorded for this step, if any.
	Err       error
	Completed bool
}

// Expire runs the action under the cursor and schedules what follows.
func (c *Chain) Expire(pool *timer.Pool, out Outputs) StepResult {
	if c.state != Armed {
		return StepResult{Index: c.cursor}
	}

	idx := c.cursor
	a := c.actions[idx]
	res := StepResult{Ran: true, Index: idx, Action: a}

	outcome, err := action.Invoke(a, &stepContext{chain: c, out: out})
	if err != nil {
		c.fault(err)
		res.Err = err
		outcome = action.Continue
	}
	res.Outcome = outcome

	switch outcome.Kind {
	case action.OutcomeReschedule:
		c.attempt++
		c.restart(pool, outcome.Delay, &res)

	case action.OutcomeJump:
		c.attempt = 0
		t := outcome.Target
		if t < 0 || t >= len(c.actions) {
			err := fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidBranchTarget, t, len(c.actions))
			c.fault(err)
			res.Err = err
			c.cursor = len(c.actions)
			c.complete(pool)
			break
		}
		c.cursor = t
		c.restart(pool, c.actions[t].Delay, &res)

	case action.OutcomeTerminate:
		c.complete(pool)

	default:
		c.attempt = 0
		c.cursor++
		if c.cursor >= len(c.actions) {
			c.complete(pool)
			break
		}
		c.restart(pool, c.actions[c.cursor].Delay, &res)
	}

	res.Completed = c.state == Completed
	return res
}

// Disarm stops the timer, releases it and returns the chain to Idle.
// Any pending reschedule is discarded.
func (c *Chain) Disarm(pool *timer.Pool) error {
	if c.state != Armed {
		return fmt.Errorf("%w: %s is %s", ErrNotArmed, c.name, c.state)
	}
	c.release(pool)
	c.state = Idle
	c.cursor = 0
	c.attempt = 0
	return nil
}

// Reset returns the chain to Idle from any state, releasing a held timer.
func (c *Chain) Reset(pool *timer.Pool) {
	c.release(pool)
	c.state = Idle
	c.cursor = 0
	c.attempt = 0
}

// Append adds an action to the end of the sequence.
func (c *Chain) Append(a action.Action) error {
	if c.state == Completed {
		return fmt.Errorf("%w: %s has completed", ErrNotIdle, c.name)
	}
	c.actions = append(c.actions, a)
	return nil
}

// Actions returns a copy of the sequence.
func (c *Chain) Actions() []action.Action {
	out := make([]action.Action, len(c.actions))
	copy(out, c.actions)
	return out
}

func (c *Chain) restart(pool *timer.Pool, d time.Duration, res *StepResult) {
	if err := pool.Start(c.timerID, d); err != nil {
		c.fault(err)
		res.Err = err
		c.complete(pool)
	}
}

func (c *Chain) complete(pool *timer.Pool) {
	c.release(pool)
	c.state = Completed
}

func (c *Chain) release(pool *timer.Pool) {
	if c.timerID == noTimer {
		return
	}
	// The claim belongs to this chain, so release cannot report ErrNotClaimed.
	_ = pool.Release(c.timerID) //nolint:errcheck // see above
	c.timerID = noTimer
}

func (c *Chain) fault(err error) {
	c.faults++
	c.lastFault = err
}

// Snapshot is a copy of a chain's observable state.
type Snapshot struct {
	Name      string   `json:"name"`
	State     string   `json:"state"`
	Cursor    int      `json:"cursor"`
	Length    int      `json:"length"`
	TimerID   *int     `json:"timer_id,omitempty"`
	Attempt   int      `json:"attempt"`
	Faults    int      `json:"faults"`
	LastFault string   `json:"last_fault,omitempty"`
	Actions   []string `json:"actions"`
	OneShot   bool     `json:"one_shot,omitempty"`
}

// Snapshot copies the chain's current state.
func (c *Chain) Snapshot() Snapshot {
	s := Snapshot{
		Name:    c.name,
		State:   c.state.String(),
		Cursor:  c.cursor,
		Length:  len(c.actions),
		Attempt: c.attempt,
		Faults:  c.faults,
		Actions: make([]string, len(c.actions)),
	}
	if id, ok := c.TimerID(); ok {
		s.TimerID = &id
	}
	if c.lastFault != nil {
		s.LastFault = c.lastFault.Error()
	}
	for i, a := range c.actions {
		s.Actions[i] = a.String()
	}
	return s
}

// stepContext is the view of a chain handed to a running action.
type stepContext struct {
	chain *Chain
	out   Outputs
}

func (s *stepContext) Cursor() int  { return s.chain.cursor }
func (s *stepContext) Len() int     { return len(s.chain.actions) }
func (s *stepContext) Attempt() int { return s.chain.attempt }

func (s *stepContext) SetPin(id int, level pin.Level) error {
	return s.out.SetPin(id, level)
}

func (s *stepContext) TogglePin(id int) error {
	return s.out.TogglePin(id)
}

func (s *stepContext) PlaySound(id int, d time.Duration) error {
	return s.out.PlaySound(id, d)
}
