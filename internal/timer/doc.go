// Package timer provides the one-shot timer arena used by action chains.
//
// A Pool owns a fixed number of timer instances addressed by small integers.
// Chains claim an instance when armed and release it when they complete,
// disarm or reset. The Pool does not run timers itself; it delegates to a
// Driver:
//
//   - SoftDriver uses time.AfterFunc and is what a running controller uses.
//   - ManualDriver records pending timers on a virtual clock and fires them
//     only when asked, for deterministic tests and offline show checks.
//
// Every Start bumps the instance's sequence number and the driver hands that
// sequence back on expiry. An expiry whose sequence no longer matches
// (Current returns false) was cancelled or superseded and must be ignored.
//
// # Thread Safety
//
// Pool is not synchronised. Its owner (the chain engine) serialises Claim,
// Release, Start, Stop and Current under its own lock. Drivers are safe for
// concurrent use and never invoke the expiry callback while holding their
// own lock.
package timer
