package pin

import (
	"fmt"
	"time"
)

// StateNode is one node of a pin-local state list.
//
// Nodes are linked through Next. A nil Next ends the list; a Next pointing
// back to an earlier node makes it cyclic.
type StateNode struct {
	State int
	Dwell time.Duration
	Next  *StateNode
}

// Step describes one node when building a list.
type Step struct {
	State int
	Dwell time.Duration
}

// NewSequence links steps into a list that ends after the last step.
func NewSequence(steps ...Step) (*StateNode, error) {
	nodes, err := link(steps)
	if err != nil {
		return nil, err
	}
	return nodes[0], nil
}

// NewCycle links steps into a list whose last node points back to the first.
func NewCycle(steps ...Step) (*StateNode, error) {
	nodes, err := link(steps)
	if err != nil {
		return nil, err
	}
	nodes[len(nodes)-1].Next = nodes[0]
	return nodes[0], nil
}

func link(steps []Step) ([]*StateNode, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: empty state list", ErrInvalidPin)
	}
	nodes := make([]*StateNode, len(steps))
	for i, s := range steps {
		if s.Dwell < 0 {
			return nil, fmt.Errorf("%w: state %d has negative dwell", ErrInvalidPin, i)
		}
		nodes[i] = &StateNode{State: s.State, Dwell: s.Dwell}
	}
	for i := 0; i < len(nodes)-1; i++ {
		nodes[i].Next = nodes[i+1]
	}
	return nodes, nil
}
