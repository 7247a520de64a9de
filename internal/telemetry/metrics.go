package telemetry

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/secretbox-core/internal/chain"
)

const namespace = "secretbox"

// oneShotLabel replaces generated one-shot names so label cardinality stays
// bounded.
const oneShotLabel = "oneshot"

// Metrics holds the controller's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	events      *prometheus.CounterVec
	faults      *prometheus.CounterVec
	armed       prometheus.Gauge
	timersInUse prometheus.Gauge
	poolSize    prometheus.Gauge
	chains      prometheus.Gauge
	pinLevel    *prometheus.GaugeVec
	frames      *prometheus.CounterVec
}

// NewMetrics creates the collectors on a fresh registry, together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_events_total",
			Help:      "Chain lifecycle events by chain and type.",
		}, []string{"chain", "type"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_faults_total",
			Help:      "Faults recorded by chain steps.",
		}, []string{"chain"}),
		armed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chains_armed",
			Help:      "Chains currently holding a timer.",
		}),
		timersInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timers_in_use",
			Help:      "Timer pool instances claimed.",
		}),
		poolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timer_pool_size",
			Help:      "Timer pool capacity.",
		}),
		chains: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chains_registered",
			Help:      "Chains known to the engine, one-shots included.",
		}),
		pinLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pin_value",
			Help:      "Last known pin value.",
		}, []string{"pin", "direction"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_frames_total",
			Help:      "Command frames handled by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.events, m.faults, m.armed, m.timersInUse, m.poolSize, m.chains, m.pinLevel, m.frames,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ChainEvent counts ev.
func (m *Metrics) ChainEvent(ev chain.Event) {
	name := chainLabel(ev)
	m.events.WithLabelValues(name, string(ev.Type)).Inc()
	if ev.Type == chain.EventFault {
		m.faults.WithLabelValues(name).Inc()
	}
}

// ObserveStats sets the occupancy gauges.
func (m *Metrics) ObserveStats(s chain.Stats) {
	m.armed.Set(float64(s.Armed))
	m.timersInUse.Set(float64(s.TimersInUse))
	m.poolSize.Set(float64(s.PoolSize))
	m.chains.Set(float64(s.Chains))
}

// ObservePin sets a pin's value gauge.
func (m *Metrics) ObservePin(id, value int, direction string) {
	m.pinLevel.WithLabelValues(strconv.Itoa(id), direction).Set(float64(value))
}

// CountFrame records a handled command frame by result class
// (appended, oneshot, rejected or failed).
func (m *Metrics) CountFrame(result string) {
	m.frames.WithLabelValues(result).Inc()
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func chainLabel(ev chain.Event) string {
	if ev.OneShot || strings.HasPrefix(ev.Chain, chain.OneShotPrefix) {
		return oneShotLabel
	}
	return ev.Chain
}
