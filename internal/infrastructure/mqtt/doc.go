// Package mqtt provides MQTT client connectivity for the Secret Box controller.
//
// MQTT carries the controller's edges: raw command frames from the I2C
// master, chain control verbs from the game-master console, sound requests
// to the audio player, and chain lifecycle events.
//
//	I2C master ─┐                        ┌─ audio player
//	GM console ─┼─ broker ─ secretbox ───┼─ dashboards
//	            │                        │
//	  secretbox/i2c/rx            secretbox/sound/play
//	  secretbox/chain/{name}/{op} secretbox/chain/{name}/event
//
// This package manages:
//   - Connection with auto-reconnect and subscription restore
//   - Publishing with QoS and a bounded wait for acknowledgment
//   - Wildcard subscriptions with panic-safe handlers
//   - Last Will and Testament on secretbox/system/status
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetLogger(logger)
//
//	err = client.Subscribe(mqtt.Topics{}.I2CReceive(), 1,
//	    func(topic string, payload []byte) error {
//	        _, err := bridge.HandleFrame(payload)
//	        return err
//	    })
package mqtt
