package show

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/secretbox-core/internal/chain"
)

// mockRepository records calls in memory.
type mockRepository struct {
	mu       sync.Mutex
	runs     map[string]*Run
	faults   []Fault
	failNext bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{runs: make(map[string]*Run)}
}

func (m *mockRepository) CreateRun(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return context.DeadlineExceeded
	}
	m.runs[run.ID] = &run
	return nil
}

func (m *mockRepository) FinishRun(_ context.Context, id, outcome string, steps, faults int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	r.Outcome, r.Steps, r.Faults, r.FinishedAt = outcome, steps, faults, &at
	return nil
}

func (m *mockRepository) AddFault(_ context.Context, f Fault) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = append(m.faults, f)
	return nil
}

func (m *mockRepository) GetRun(_ context.Context, id string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepository) ListRuns(context.Context, string, int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, *r)
	}
	return out, nil
}

func ev(t chain.EventType, name string, index int) chain.Event {
	return chain.Event{Type: t, Chain: name, Index: index, Timestamp: time.Now().UTC()}
}

func TestRecorder_CompletedRun(t *testing.T) {
	repo := newMockRepository()
	rec := NewRecorder(repo, nil)

	rec.ChainEvent(ev(chain.EventArmed, "intro", 0))
	rec.ChainEvent(ev(chain.EventStep, "intro", 0))
	fault := ev(chain.EventFault, "intro", 1)
	fault.Action, fault.Error = "set_pin(22, 1)", "pin: input only"
	rec.ChainEvent(ev(chain.EventStep, "intro", 1))
	rec.ChainEvent(fault)
	rec.ChainEvent(ev(chain.EventCompleted, "intro", 2))
	rec.Close()

	runs, _ := repo.ListRuns(context.Background(), "", 0)
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	r := runs[0]
	if r.Chain != "intro" || r.Outcome != OutcomeCompleted || r.Steps != 2 || r.Faults != 1 {
		t.Errorf("run = %+v", r)
	}
	if len(repo.faults) != 1 || repo.faults[0].RunID != r.ID || repo.faults[0].StepIndex != 1 {
		t.Errorf("faults = %+v", repo.faults)
	}
}

func TestRecorder_Outcomes(t *testing.T) {
	for _, final := range []chain.EventType{chain.EventDisarmed, chain.EventReset} {
		t.Run(string(final), func(t *testing.T) {
			repo := newMockRepository()
			rec := NewRecorder(repo, nil)
			rec.ChainEvent(ev(chain.EventArmed, "finale", 0))
			rec.ChainEvent(ev(final, "finale", 0))
			rec.Close()

			runs, _ := repo.ListRuns(context.Background(), "", 0)
			if len(runs) != 1 || runs[0].Outcome != string(final) {
				t.Errorf("runs = %+v", runs)
			}
		})
	}
}

func TestRecorder_IgnoresEventsWithoutOpenRun(t *testing.T) {
	repo := newMockRepository()
	repo.failNext = true
	rec := NewRecorder(repo, nil)

	// Start fails, so the rest of the run has nowhere to go.
	rec.ChainEvent(ev(chain.EventArmed, "intro", 0))
	rec.ChainEvent(ev(chain.EventStep, "intro", 0))
	rec.ChainEvent(ev(chain.EventFault, "intro", 0))
	rec.ChainEvent(ev(chain.EventCompleted, "intro", 1))
	// Reset of an idle chain.
	rec.ChainEvent(ev(chain.EventReset, "finale", 0))
	rec.Close()

	runs, _ := repo.ListRuns(context.Background(), "", 0)
	if len(runs) != 0 || len(repo.faults) != 0 {
		t.Errorf("runs = %+v faults = %+v", runs, repo.faults)
	}
}

func TestRecorder_CloseIdempotent(t *testing.T) {
	repo := newMockRepository()
	rec := NewRecorder(repo, nil)
	rec.Close()
	rec.Close()

	// Late events are dropped, not sent on the closed queue.
	rec.ChainEvent(chain.Event{Type: chain.EventArmed, Chain: "intro"})
	if len(repo.runs) != 0 {
		t.Errorf("runs after Close = %d", len(repo.runs))
	}
}
