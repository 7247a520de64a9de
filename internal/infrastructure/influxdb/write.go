package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the controller.
const (
	MeasurementChainEvents = "chain_events"
	MeasurementPinLevels   = "pin_levels"
	MeasurementEngine      = "engine"
)

// ChainEvent is one chain lifecycle record.
type ChainEvent struct {
	Chain   string
	Type    string // armed, step, fault, completed, disarmed, reset
	Index   int
	Action  string
	Faults  int
	OneShot bool
	Time    time.Time
}

// WriteChainEvent records a chain lifecycle event. Chain name and event
// type are tags; cursor position and fault count are fields.
func (c *Client) WriteChainEvent(ev ChainEvent) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(chainEventPoint(ev))
}

func chainEventPoint(ev ChainEvent) *write.Point {
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	oneShot := "false"
	if ev.OneShot {
		oneShot = "true"
	}
	fields := map[string]interface{}{
		"index":  int64(ev.Index),
		"faults": int64(ev.Faults),
	}
	if ev.Action != "" {
		fields["action"] = ev.Action
	}
	return write.NewPoint(
		MeasurementChainEvents,
		map[string]string{
			"chain":    ev.Chain,
			"type":     ev.Type,
			"one_shot": oneShot,
		},
		fields,
		ts,
	)
}

// WritePinLevel records a pin's logic level (0 or 1) and its pattern state.
func (c *Client) WritePinLevel(pin int, level int, state int) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(pinLevelPoint(pin, level, state, time.Now()))
}

func pinLevelPoint(pin, level, state int, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementPinLevels,
		map[string]string{"pin": strconv.Itoa(pin)},
		map[string]interface{}{
			"level": int64(level),
			"state": int64(state),
		},
		ts,
	)
}

// WriteEngineStats records timer pool occupancy and armed chain count.
func (c *Client) WriteEngineStats(chains, armed, timersInUse, poolSize int) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementEngine,
		nil,
		map[string]interface{}{
			"chains":        int64(chains),
			"armed":         int64(armed),
			"timers_in_use": int64(timersInUse),
			"pool_size":     int64(poolSize),
		},
		time.Now(),
	))
}

// WritePoint writes a custom point timestamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
