// Package bridge turns inbound I2C command frames into chain activity.
//
// A frame is one command-code byte followed by the encoded arguments. The
// bridge decodes it through the dispatch table and then applies its enqueue
// policy:
//
//	append   add the action to the target chain while that chain is armed,
//	         otherwise arm a one-shot chain for it
//	oneshot  always arm a one-shot chain
//
// The bridge also accepts chain control verbs (arm, disarm, reset). Frames
// and verbs arrive over MQTT; see Bind.
package bridge

import (
	"fmt"

	"github.com/nerrad567/secretbox-core/internal/action"
	"github.com/nerrad567/secretbox-core/internal/dispatch"
)

// Policy selects what happens to a dispatched action.
type Policy string

const (
	PolicyAppend  Policy = "append"
	PolicyOneShot Policy = "oneshot"
)

// ParsePolicy converts a config string to a Policy. Empty means oneshot.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyOneShot:
		return PolicyOneShot, nil
	case PolicyAppend:
		return PolicyAppend, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Engine is the subset of the chain engine the bridge drives.
type Engine interface {
	Arm(name string) error
	Disarm(name string) error
	Reset(name string) error
	AppendIfArmed(name string, a action.Action) (bool, error)
	ArmOneShot(a action.Action) (string, error)
}

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// FrameCounter counts handled frames by result class.
type FrameCounter interface {
	CountFrame(result string)
}

// Frame result classes passed to FrameCounter.
const (
	FrameAppended = "appended"
	FrameOneShot  = "oneshot"
	FrameRejected = "rejected"
	FrameFailed   = "failed"
)

// Result describes how a frame was handled.
type Result struct {
	Code     byte   `json:"code"`
	Action   string `json:"action"`
	Chain    string `json:"chain"`
	Appended bool   `json:"appended"`
}

// Bridge applies decoded commands to the engine.
type Bridge struct {
	table   *dispatch.Table
	engine  Engine
	policy  Policy
	target  string
	logger  Logger
	counter FrameCounter
}

// New creates a bridge. target names the chain used by the append policy.
func New(table *dispatch.Table, engine Engine, policy Policy, target string, logger Logger) (*Bridge, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	if policy == PolicyAppend && target == "" {
		return nil, ErrNoTarget
	}
	return &Bridge{
		table:  table,
		engine: engine,
		policy: policy,
		target: target,
		logger: logger,
	}, nil
}

// SetFrameCounter installs c to count frames. Call before Bind.
func (b *Bridge) SetFrameCounter(c FrameCounter) {
	b.counter = c
}

// HandleFrame decodes frame and enqueues the resulting action.
func (b *Bridge) HandleFrame(frame []byte) (Result, error) {
	res, class, err := b.handleFrame(frame)
	if b.counter != nil {
		b.counter.CountFrame(class)
	}
	return res, err
}

func (b *Bridge) handleFrame(frame []byte) (Result, string, error) {
	if len(frame) == 0 {
		return Result{}, FrameRejected, ErrEmptyFrame
	}

	code := frame[0]
	a, err := b.table.Dispatch(code, frame[1:])
	if err != nil {
		return Result{Code: code}, FrameRejected, err
	}
	res := Result{Code: code, Action: a.String()}

	if b.policy == PolicyAppend {
		appended, err := b.engine.AppendIfArmed(b.target, a)
		if err != nil {
			return res, FrameFailed, err
		}
		if appended {
			res.Chain = b.target
			res.Appended = true
			b.logger.Debug("command appended", "code", code, "chain", b.target, "action", res.Action)
			return res, FrameAppended, nil
		}
	}

	name, err := b.engine.ArmOneShot(a)
	if err != nil {
		return res, FrameFailed, fmt.Errorf("arming one-shot for 0x%02x: %w", code, err)
	}
	res.Chain = name
	b.logger.Debug("command armed", "code", code, "chain", name, "action", res.Action)
	return res, FrameOneShot, nil
}

// Control applies a chain control verb.
func (b *Bridge) Control(name, op string) error {
	var err error
	switch op {
	case "arm":
		err = b.engine.Arm(name)
	case "disarm":
		err = b.engine.Disarm(name)
	case "reset":
		err = b.engine.Reset(name)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, name, err)
	}
	b.logger.Info("chain control", "chain", name, "op", op)
	return nil
}
