package chain

import "time"

// EventType identifies a chain lifecycle event.
type EventType string

const (
	EventArmed     EventType = "armed"
	EventStep      EventType = "step"
	EventFault     EventType = "fault"
	EventCompleted EventType = "completed"
	EventDisarmed  EventType = "disarmed"
	EventReset     EventType = "reset"
)

// Event is emitted to observers after the engine changes a chain.
type Event struct {
	Type      EventType `json:"type"`
	Chain     string    `json:"chain"`
	OneShot   bool      `json:"one_shot,omitempty"`
	Index     int       `json:"index"`
	Action    string    `json:"action,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Faults    int       `json:"faults"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Observer receives chain events.
//
// ChainEvent is called outside the engine lock, in the order events were
// produced for a given call. Implementations must not block; queue work
// elsewhere if it is slow.
type Observer interface {
	ChainEvent(ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev Event)

// ChainEvent calls f(ev).
func (f ObserverFunc) ChainEvent(ev Event) { f(ev) }
