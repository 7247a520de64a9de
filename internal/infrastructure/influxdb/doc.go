// Package influxdb writes controller telemetry to InfluxDB v2.
//
// Three measurements are written:
//
//	chain_events  tags chain, type, one_shot; fields index, faults, action
//	pin_levels    tag pin; fields level, state
//	engine        fields chains, armed, timers_in_use, pool_size
//
// Writes are batched and non-blocking (batch_size, flush_interval from the
// influxdb config section); failures reach the SetOnError callback.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteChainEvent(influxdb.ChainEvent{Chain: "intro", Type: "armed"})
package influxdb
