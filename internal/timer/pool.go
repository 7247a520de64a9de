package timer

import (
	"fmt"
	"time"
)

// ExpiryFunc is called by a Driver when instance id fires. seq is the
// sequence number passed to the Start that scheduled it.
type ExpiryFunc func(id int, seq uint64)

// Driver schedules one-shot expiries.
//
// Start replaces any pending expiry for id. Stop cancels it; a fire already
// in flight may still be delivered, which is why expiries carry seq.
type Driver interface {
	Start(id int, seq uint64, d time.Duration, fire ExpiryFunc)
	Stop(id int)
}

type instance struct {
	claimed bool
	seq     uint64
}

// Pool is a fixed arena of timer instances.
type Pool struct {
	driver Driver
	fire   ExpiryFunc
	slots  []instance
	inUse  int
}

// NewPool creates a pool of size instances backed by driver. fire receives
// every expiry, stale or not.
func NewPool(size int, driver Driver, fire ExpiryFunc) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if driver == nil {
		return nil, fmt.Errorf("timer: driver is required")
	}
	return &Pool{
		driver: driver,
		fire:   fire,
		slots:  make([]instance, size),
	}, nil
}

// Claim reserves a free instance and returns its id.
func (p *Pool) Claim() (int, error) {
	for id := range p.slots {
		if !p.slots[id].claimed {
			p.slots[id].claimed = true
			p.inUse++
			return id, nil
		}
	}
	return -1, fmt.Errorf("%w: %d of %d in use", ErrPoolExhausted, p.inUse, len(p.slots))
}

// Release stops and frees a claimed instance.
func (p *Pool) Release(id int) error {
	if !p.claimed(id) {
		return fmt.Errorf("%w: %d", ErrNotClaimed, id)
	}
	p.Stop(id)
	p.slots[id].claimed = false
	p.inUse--
	return nil
}

// Start (re)arms a claimed instance to fire after d.
func (p *Pool) Start(id int, d time.Duration) error {
	if !p.claimed(id) {
		return fmt.Errorf("%w: %d", ErrNotClaimed, id)
	}
	if d < 0 {
		d = 0
	}
	p.slots[id].seq++
	p.driver.Start(id, p.slots[id].seq, d, p.fire)
	return nil
}

// Stop cancels the pending expiry of id, if any. Unclaimed ids are ignored.
func (p *Pool) Stop(id int) {
	if id < 0 || id >= len(p.slots) {
		return
	}
	p.slots[id].seq++
	p.driver.Stop(id)
}

// Current reports whether an expiry for (id, seq) is the latest scheduled
// for a claimed instance.
func (p *Pool) Current(id int, seq uint64) bool {
	return p.claimed(id) && p.slots[id].seq == seq
}

// InUse returns the number of claimed instances.
func (p *Pool) InUse() int { return p.inUse }

// Size returns the pool capacity.
func (p *Pool) Size() int { return len(p.slots) }

func (p *Pool) claimed(id int) bool {
	return id >= 0 && id < len(p.slots) && p.slots[id].claimed
}
