package telemetry

import (
	"github.com/nerrad567/secretbox-core/internal/chain"
	"github.com/nerrad567/secretbox-core/internal/infrastructure/influxdb"
)

// PointWriter is the InfluxDB surface used by this package. Writes are
// batched by the client and never block.
type PointWriter interface {
	WriteChainEvent(ev influxdb.ChainEvent)
	WritePinLevel(pin int, level int, state int)
	WriteEngineStats(chains, armed, timersInUse, poolSize int)
}

// InfluxObserver writes chain events to InfluxDB.
type InfluxObserver struct {
	writer PointWriter
}

// NewInfluxObserver creates an observer writing through w.
func NewInfluxObserver(w PointWriter) *InfluxObserver {
	return &InfluxObserver{writer: w}
}

// ChainEvent writes ev as a chain_events point.
func (o *InfluxObserver) ChainEvent(ev chain.Event) {
	o.writer.WriteChainEvent(influxdb.ChainEvent{
		Chain:   chainLabel(ev),
		Type:    string(ev.Type),
		Index:   ev.Index,
		Action:  ev.Action,
		Faults:  ev.Faults,
		OneShot: ev.OneShot,
		Time:    ev.Timestamp,
	})
}
