package telemetry

import (
	"context"
	"time"

	"github.com/nerrad567/secretbox-core/internal/chain"
	"github.com/nerrad567/secretbox-core/internal/pin"
)

// StatsSource is the engine surface read by the sampler.
type StatsSource interface {
	Stats() chain.Stats
	Pins() []pin.Snapshot
}

// Sampler copies engine occupancy and pin values into Metrics and
// InfluxDB on a fixed interval. Either sink may be nil.
type Sampler struct {
	source   StatsSource
	metrics  *Metrics
	writer   PointWriter
	interval time.Duration
}

// NewSampler creates a sampler. A non-positive interval means 10s.
func NewSampler(source StatsSource, metrics *Metrics, writer PointWriter, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Sampler{source: source, metrics: metrics, writer: writer, interval: interval}
}

// Run samples once immediately and then on every tick until ctx ends.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sample()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sample()
		}
	}
}

// Sample takes one reading.
func (s *Sampler) Sample() {
	stats := s.source.Stats()
	pins := s.source.Pins()

	if s.metrics != nil {
		s.metrics.ObserveStats(stats)
		for _, p := range pins {
			s.metrics.ObservePin(p.ID, p.Value, p.Direction)
		}
	}
	if s.writer != nil {
		s.writer.WriteEngineStats(stats.Chains, stats.Armed, stats.TimersInUse, stats.PoolSize)
		for _, p := range pins {
			state := -1
			if p.State != nil {
				state = *p.State
			}
			s.writer.WritePinLevel(p.ID, int(pin.LevelOf(p.Value)), state)
		}
	}
}
