package timer

import (
	"sync"
	"time"
)

// SoftDriver runs expiries on time.AfterFunc goroutines.
type SoftDriver struct {
	mu     sync.Mutex
	timers map[int]*time.Timer
	closed bool
}

// NewSoftDriver creates a driver backed by the runtime timer heap.
func NewSoftDriver() *SoftDriver {
	return &SoftDriver{timers: make(map[int]*time.Timer)}
}

// Start schedules fire(id, seq) after d, replacing any pending timer for id.
func (s *SoftDriver) Start(id int, seq uint64, d time.Duration, fire ExpiryFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	s.timers[id] = time.AfterFunc(d, func() {
		fire(id, seq)
	})
}

// Stop cancels the pending timer for id.
func (s *SoftDriver) Stop(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// Close cancels every pending timer. Later Starts are ignored.
func (s *SoftDriver) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.closed = true
}
