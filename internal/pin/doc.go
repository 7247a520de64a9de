// Package pin models the controller's physical outputs and inputs.
//
// A Pin records the last known value of one board pin. It performs no I/O:
// the GPIO driver writes and polls the hardware, and the chain engine keeps
// this model in step with what it wrote or what was read back.
//
// # Values
//
// Each pin is created in one of two modes and never changes mode:
//
//   - ModeLogic: the value is a two-state Level (Low/High)
//   - ModeRaw: the value is the raw integer last observed on the pin
//
// Both modes share a single stored value, so there is never a level and a raw
// reading that disagree.
//
// # State nodes
//
// A pin may also carry a cursor into a list of StateNodes (for example a blink
// pattern). The node topology is built once and shared between pins; only the
// per-pin cursor moves.
//
// # Thread Safety
//
// Pins and Banks are not synchronised. The chain engine owns them and
// serialises all access under its own lock.
package pin
