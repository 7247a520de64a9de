// Package chain implements action chains and the engine that runs them.
//
// A Chain owns an ordered list of actions and a cursor. Arming a chain
// claims one instance from the shared timer pool; every expiry of that
// instance runs the action under the cursor and decides, from the action's
// outcome, what to schedule next:
//
//	Idle --Arm--> Armed --expiry*--> Completed --Reset--> Idle
//	                |
//	                +--Disarm--> Idle
//
// A chain releases its timer on every path out of Armed. Handler errors are
// counted as faults and the step is treated as Continue, so a single bad step
// does not stop a running show. A branch outside the chain is a fault that
// completes the chain.
//
// The Engine holds the registered chains and serialises all access to them
// and to the timer pool with one mutex. Timer expiries enter through
// HandleExpiry; observers receive Events after the lock is released.
//
// Pin patterns (pin.StateNode lists) are not timed by the engine. They are
// advanced one node at a time with AdvancePin.
package chain
