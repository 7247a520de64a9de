package pin

import (
	"fmt"
	"sort"
)

// Bank holds the board's pins keyed by ID.
type Bank struct {
	pins map[int]*Pin
}

// NewBank creates a bank from the given pins.
func NewBank(pins ...*Pin) (*Bank, error) {
	b := &Bank{pins: make(map[int]*Pin, len(pins))}
	for _, p := range pins {
		if err := b.Add(p); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Add registers a pin. Returns ErrDuplicatePin if the ID is taken.
func (b *Bank) Add(p *Pin) error {
	if p == nil {
		return fmt.Errorf("%w: nil pin", ErrInvalidPin)
	}
	if _, exists := b.pins[p.id]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicatePin, p.id)
	}
	b.pins[p.id] = p
	return nil
}

// Get returns the pin with the given ID.
func (b *Bank) Get(id int) (*Pin, error) {
	p, ok := b.pins[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPinReference, id)
	}
	return p, nil
}

// Len returns the number of pins.
func (b *Bank) Len() int { return len(b.pins) }

// IDs returns all pin IDs in ascending order.
func (b *Bank) IDs() []int {
	ids := make([]int, 0, len(b.pins))
	for id := range b.pins {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Snapshot copies every pin, ordered by ID.
func (b *Bank) Snapshot() []Snapshot {
	out := make([]Snapshot, 0, len(b.pins))
	for _, id := range b.IDs() {
		out = append(out, b.pins[id].Snapshot())
	}
	return out
}
