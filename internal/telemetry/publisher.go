package telemetry

import (
	"sync"

	"github.com/nerrad567/secretbox-core/internal/chain"
	"github.com/nerrad567/secretbox-core/internal/infrastructure/mqtt"
)

const publishQueueSize = 64

// JSONPublisher is the MQTT client surface used by EventPublisher.
type JSONPublisher interface {
	PublishJSON(topic string, v any) error
}

// Logger is the logging interface used by this package.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// EventPublisher republishes chain events on secretbox/chain/{name}/event.
// Events are queued and sent by one goroutine; a full queue drops events.
type EventPublisher struct {
	pub    JSONPublisher
	logger Logger
	queue  chan chain.Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewEventPublisher starts a publisher. Call Close to drain and stop it.
func NewEventPublisher(pub JSONPublisher, logger Logger) *EventPublisher {
	if logger == nil {
		logger = noopLogger{}
	}
	p := &EventPublisher{
		pub:    pub,
		logger: logger,
		queue:  make(chan chain.Event, publishQueueSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// ChainEvent queues ev for publishing. Events after Close are dropped.
func (p *EventPublisher) ChainEvent(ev chain.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- ev:
	default:
		p.logger.Warn("event publish queue full, event dropped", "chain", ev.Chain, "type", ev.Type)
	}
}

// Close stops the publisher after sending queued events.
func (p *EventPublisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
}

func (p *EventPublisher) run() {
	defer close(p.done)
	for ev := range p.queue {
		if err := p.pub.PublishJSON(mqtt.Topics{}.ChainEvent(ev.Chain), ev); err != nil {
			p.logger.Warn("event publish failed", "chain", ev.Chain, "type", ev.Type, "error", err)
		}
	}
}
