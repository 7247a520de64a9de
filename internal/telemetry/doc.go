// Package telemetry exports engine activity.
//
// Three chain.Observer implementations live here:
//   - Metrics counts events into a private Prometheus registry
//   - InfluxObserver writes each event as an InfluxDB point
//   - EventPublisher republishes events as JSON on MQTT
//
// Sampler polls engine occupancy and pin levels on an interval and feeds
// both the gauges and InfluxDB. Every observer returns without waiting on
// the network.
package telemetry
