package chain

import "errors"

// Domain errors for the chain package.
var (
	// ErrAlreadyArmed is returned when arming a chain that is already armed.
	// The chain is left unchanged.
	ErrAlreadyArmed = errors.New("chain: already armed")

	// ErrNotIdle is returned when an operation needs an idle chain but the
	// chain has completed and has not been reset.
	ErrNotIdle = errors.New("chain: not idle")

	// ErrNotArmed is returned when disarming a chain that is not armed.
	ErrNotArmed = errors.New("chain: not armed")

	// ErrTimerPoolExhausted is returned by Arm when no timer instance is free.
	ErrTimerPoolExhausted = errors.New("chain: timer pool exhausted")

	// ErrInvalidBranchTarget is recorded as a fault when a branch names an
	// index outside the chain.
	ErrInvalidBranchTarget = errors.New("chain: invalid branch target")

	// ErrChainNotFound is returned when no chain has the given name.
	ErrChainNotFound = errors.New("chain: not found")

	// ErrChainExists is returned when registering a name already in use.
	ErrChainExists = errors.New("chain: already exists")

	// ErrInvalidChain is returned for a chain without a name.
	ErrInvalidChain = errors.New("chain: invalid chain")

	// ErrNoPattern is returned by AdvancePin when the pin has no state
	// list attached or its sequence has ended.
	ErrNoPattern = errors.New("chain: pin has no pattern to advance")

	// ErrNoSoundSink is returned when a sound is requested and no sink is
	// configured.
	ErrNoSoundSink = errors.New("chain: no sound sink configured")
)
