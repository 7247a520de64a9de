package show

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/secretbox-core/internal/chain"
)

const (
	recorderQueueSize = 256
	recorderTimeout   = 5 * time.Second
)

// Logger is the logging interface used by the recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// openRun tracks a run between its armed and final events.
type openRun struct {
	id     string
	steps  int
	faults int
}

// Recorder is a chain.Observer that writes runs to a Repository.
//
// Events are queued and written by a single goroutine, so ChainEvent never
// blocks the engine. Events arriving while the queue is full are dropped.
type Recorder struct {
	repo   Repository
	logger Logger
	events chan chain.Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool

	// open is only touched by the worker goroutine.
	open map[string]*openRun
}

// NewRecorder starts a recorder. Call Close to drain and stop it.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	r := &Recorder{
		repo:   repo,
		logger: logger,
		events: make(chan chain.Event, recorderQueueSize),
		done:   make(chan struct{}),
		open:   make(map[string]*openRun),
	}
	go r.run()
	return r
}

// ChainEvent queues ev for recording. Events after Close are dropped.
func (r *Recorder) ChainEvent(ev chain.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.events <- ev:
	default:
		r.logger.Warn("run recorder queue full, event dropped", "chain", ev.Chain, "type", ev.Type)
	}
}

// Close stops accepting events and waits for queued ones to be written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for ev := range r.events {
		r.record(ev)
	}
}

func (r *Recorder) record(ev chain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), recorderTimeout)
	defer cancel()

	switch ev.Type {
	case chain.EventArmed:
		run := &openRun{id: uuid.NewString()}
		err := r.repo.CreateRun(ctx, Run{
			ID:        run.id,
			Chain:     ev.Chain,
			OneShot:   ev.OneShot,
			StartedAt: ev.Timestamp,
		})
		if err != nil {
			r.logger.Warn("recording run start failed", "chain", ev.Chain, "error", err)
			return
		}
		r.open[ev.Chain] = run

	case chain.EventStep:
		if run := r.open[ev.Chain]; run != nil {
			run.steps++
		}

	case chain.EventFault:
		run := r.open[ev.Chain]
		if run == nil {
			return
		}
		run.faults++
		err := r.repo.AddFault(ctx, Fault{
			RunID:      run.id,
			StepIndex:  ev.Index,
			Action:     ev.Action,
			Error:      ev.Error,
			OccurredAt: ev.Timestamp,
		})
		if err != nil {
			r.logger.Warn("recording fault failed", "chain", ev.Chain, "error", err)
		}

	case chain.EventCompleted, chain.EventDisarmed, chain.EventReset:
		run := r.open[ev.Chain]
		if run == nil {
			return
		}
		delete(r.open, ev.Chain)
		if err := r.repo.FinishRun(ctx, run.id, string(ev.Type), run.steps, run.faults, ev.Timestamp); err != nil {
			r.logger.Warn("recording run finish failed", "chain", ev.Chain, "error", err)
			return
		}
		r.logger.Debug("run recorded", "chain", ev.Chain, "run", run.id, "outcome", ev.Type)
	}
}
