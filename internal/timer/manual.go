package timer

import (
	"sort"
	"sync"
	"time"
)

type pending struct {
	seq      uint64
	delay    time.Duration
	deadline time.Duration
	fire     ExpiryFunc
}

// ManualDriver holds expiries on a virtual clock until Fire or FireNext is
// called. Expiries are delivered synchronously on the caller's goroutine.
type ManualDriver struct {
	mu      sync.Mutex
	now     time.Duration
	pending map[int]pending
}

// NewManualDriver creates a driver whose virtual clock starts at zero.
func NewManualDriver() *ManualDriver {
	return &ManualDriver{pending: make(map[int]pending)}
}

// Start records a pending expiry at now+d.
func (m *ManualDriver) Start(id int, seq uint64, d time.Duration, fire ExpiryFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[id] = pending{seq: seq, delay: d, deadline: m.now + d, fire: fire}
}

// Stop drops the pending expiry for id.
func (m *ManualDriver) Stop(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)
}

// Fire delivers the pending expiry for id, advancing the clock to its
// deadline. It reports false if nothing was pending.
func (m *ManualDriver) Fire(id int) bool {
	m.mu.Lock()
	p, ok := m.pending[id]
	if ok {
		delete(m.pending, id)
		if p.deadline > m.now {
			m.now = p.deadline
		}
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	p.fire(id, p.seq)
	return true
}

// FireNext fires the pending expiry with the earliest deadline, lowest id
// first on ties.
func (m *ManualDriver) FireNext() (int, bool) {
	m.mu.Lock()
	next, found := -1, false
	var best time.Duration
	for id, p := range m.pending {
		if !found || p.deadline < best || (p.deadline == best && id < next) {
			next, best, found = id, p.deadline, true
		}
	}
	m.mu.Unlock()

	if !found {
		return -1, false
	}
	return next, m.Fire(next)
}

// Delay returns the delay the pending expiry for id was started with.
func (m *ManualDriver) Delay(id int) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[id]
	return p.delay, ok
}

// Pending returns the ids with a pending expiry, ascending.
func (m *ManualDriver) Pending() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Now returns the virtual clock.
func (m *ManualDriver) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}
