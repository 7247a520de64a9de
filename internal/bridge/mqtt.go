package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/secretbox-core/internal/infrastructure/mqtt"
)

// Transport is the MQTT client surface the bridge needs.
type Transport interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Ack is published on the I2C ack topic after each frame.
type Ack struct {
	Result
	Error string `json:"error,omitempty"`
}

// Bind subscribes the bridge to the I2C receive topic and the chain control
// topics. Handler errors are returned to the client, which logs them.
func (b *Bridge) Bind(t Transport) error {
	topics := mqtt.Topics{}

	if err := t.Subscribe(topics.I2CReceive(), 1, b.frameHandler(t)); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topics.I2CReceive(), err)
	}
	if err := t.Subscribe(topics.AllChainControl(), 1, b.controlHandler()); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topics.AllChainControl(), err)
	}
	return nil
}

func (b *Bridge) frameHandler(t Transport) mqtt.MessageHandler {
	return func(_ string, payload []byte) error {
		res, err := b.HandleFrame(payload)

		ack := Ack{Result: res}
		if err != nil {
			ack.Error = err.Error()
		}
		body, merr := json.Marshal(ack)
		if merr == nil {
			if perr := t.Publish(mqtt.Topics{}.I2CAck(), body, 1, false); perr != nil {
				b.logger.Warn("publishing frame ack failed", "error", perr)
			}
		}
		return err
	}
}

func (b *Bridge) controlHandler() mqtt.MessageHandler {
	return func(topic string, _ []byte) error {
		name, op, ok := mqtt.Topics{}.ParseChainControl(topic)
		if !ok {
			return fmt.Errorf("%w: topic %s", ErrUnknownOperation, topic)
		}
		switch op {
		case mqtt.OpArm, mqtt.OpDisarm, mqtt.OpReset:
			return b.Control(name, op)
		default:
			// Our own event topics share the wildcard.
			return nil
		}
	}
}
