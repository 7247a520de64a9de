// Package sound is the boundary to whatever plays audio clips.
//
// The controller never waits on playback. A Sink accepts a clip id and a
// duration and returns at once; MQTTSink hands the request to an audio
// player subscribed to the play topic, LogSink only records it.
package sound

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Sink plays sound clips. Play must not block on playback.
type Sink interface {
	Play(id int, d time.Duration) error
}

// Domain errors for the sound package.
var (
	// ErrInvalidSound is returned for a negative clip id or duration.
	ErrInvalidSound = errors.New("sound: invalid request")

	// ErrQueueFull is returned when the publisher is too far behind.
	ErrQueueFull = errors.New("sound: play queue full")

	// ErrSinkClosed is returned by Play after Close.
	ErrSinkClosed = errors.New("sound: sink closed")
)

// Publisher is the MQTT client surface used by MQTTSink.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the logging interface used by the sinks.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Request is the JSON payload published for each play.
type Request struct {
	SoundID    int       `json:"sound_id"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// MQTTSink publishes play requests from a background goroutine so Play never
// waits on the broker.
type MQTTSink struct {
	pub    Publisher
	topic  string
	qos    byte
	queue  chan Request
	done   chan struct{}
	logger Logger

	mu     sync.RWMutex
	closed bool
}

// queueDepth bounds pending play requests. Requests beyond it are dropped.
const queueDepth = 32

// NewMQTTSink creates a sink that publishes to topic at QoS 1 and starts its
// publisher goroutine. Call Close to stop it.
func NewMQTTSink(pub Publisher, topic string, logger Logger) *MQTTSink {
	s := &MQTTSink{
		pub:    pub,
		topic:  topic,
		qos:    1,
		queue:  make(chan Request, queueDepth),
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.run()
	return s
}

// Play queues a Request for the clip.
func (s *MQTTSink) Play(id int, d time.Duration) error {
	if id < 0 || d < 0 {
		return fmt.Errorf("%w: sound %d for %s", ErrInvalidSound, id, d)
	}
	req := Request{
		SoundID:    id,
		DurationMS: d.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("%w: sound %d", ErrSinkClosed, id)
	}
	select {
	case s.queue <- req:
		return nil
	default:
		return fmt.Errorf("%w: sound %d", ErrQueueFull, id)
	}
}

// Close stops the publisher after draining queued requests. It is safe to
// call more than once.
func (s *MQTTSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *MQTTSink) run() {
	defer close(s.done)
	for req := range s.queue {
		if err := s.publish(req); err != nil && s.logger != nil {
			s.logger.Warn("sound publish failed", "sound_id", req.SoundID, "error", err)
		}
	}
}

func (s *MQTTSink) publish(req Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshalling play request: %w", err)
	}
	if err := s.pub.Publish(s.topic, payload, s.qos, false); err != nil {
		return fmt.Errorf("publishing sound %d: %w", req.SoundID, err)
	}
	return nil
}

// LogSink logs play requests and does nothing else.
type LogSink struct {
	logger Logger
}

// NewLogSink creates a sink that writes to logger.
func NewLogSink(logger Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Play logs the request.
func (s *LogSink) Play(id int, d time.Duration) error {
	if id < 0 || d < 0 {
		return fmt.Errorf("%w: sound %d for %s", ErrInvalidSound, id, d)
	}
	if s.logger != nil {
		s.logger.Info("sound play", "sound_id", id, "duration", d)
	}
	return nil
}
