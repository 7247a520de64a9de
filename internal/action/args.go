package action

import (
	"fmt"
	"strings"
)

// MaxArgs is the largest arity of any handler kind.
const MaxArgs = 4

// Args is an owned, fixed-capacity argument list.
//
// It is a value type: copying an Args copies the integers, so an Action never
// shares argument storage with the table or command it was built from.
type Args struct {
	n    uint8
	vals [MaxArgs]int
}

// NewArgs copies vals into an Args. It fails if more than MaxArgs are given.
func NewArgs(vals ...int) (Args, error) {
	var a Args
	if len(vals) > MaxArgs {
		return a, fmt.Errorf("%w: %d arguments exceeds maximum %d", ErrArgumentCountMismatch, len(vals), MaxArgs)
	}
	a.n = uint8(len(vals)) //nolint:gosec // bounded by MaxArgs above
	copy(a.vals[:], vals)
	return a, nil
}

// Len returns the number of arguments.
func (a Args) Len() int { return int(a.n) }

// At returns argument i. It panics if i is out of range, like a slice index.
func (a Args) At(i int) int {
	if i < 0 || i >= int(a.n) {
		panic(fmt.Sprintf("action: argument index %d out of range [0,%d)", i, a.n))
	}
	return a.vals[i]
}

// Slice returns a copy of the arguments as a slice.
func (a Args) Slice() []int {
	out := make([]int, a.n)
	copy(out, a.vals[:a.n])
	return out
}

// String formats the arguments as "(a, b, c)".
func (a Args) String() string {
	parts := make([]string, a.n)
	for i := range parts {
		parts[i] = fmt.Sprint(a.vals[i])
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
