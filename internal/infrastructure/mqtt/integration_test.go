//go:build integration

package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/secretbox-core/internal/infrastructure/config"
)

// Integration tests need an MQTT broker at 127.0.0.1:1883 and skip when
// none answers.
//
// Run with:
//   go test -tags=integration -count=1 -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func connectOrSkip(t *testing.T, clientID string) *Client {
	t.Helper()
	client, err := Connect(integrationConfig(clientID))
	if err != nil {
		t.Skipf("no MQTT broker available: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

func TestIntegration_Connect(t *testing.T) {
	client := connectOrSkip(t, "secretbox-int-connect")

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestIntegration_ConnectRefused(t *testing.T) {
	connectOrSkip(t, "secretbox-int-refused-probe")

	cfg := integrationConfig("secretbox-int-refused")
	cfg.Broker.Port = 19998
	if _, err := Connect(cfg); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	client := connectOrSkip(t, "secretbox-int-sub-track")
	handler := func(string, []byte) error { return nil }

	topics := []string{
		Topics{}.I2CReceive(),
		Topics{}.AllChainControl(),
		"secretbox/int/test",
	}
	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}
	if client.SubscriptionCount() != 3 {
		t.Errorf("SubscriptionCount() = %d, want 3", client.SubscriptionCount())
	}

	if err := client.Unsubscribe(topics[2]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(topics[2]) {
		t.Error("HasSubscription() = true after Unsubscribe")
	}
}

func TestIntegration_FrameRoundtrip(t *testing.T) {
	pub := connectOrSkip(t, "secretbox-int-pub")
	sub := connectOrSkip(t, "secretbox-int-sub")

	received := make(chan []byte, 1)
	if err := sub.Subscribe(Topics{}.I2CReceive(), 1, func(_ string, payload []byte) error {
		received <- payload
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	frame := []byte{0x05, 0x02, 0x01, 0xf4}
	if err := pub.Publish(Topics{}.I2CReceive(), frame, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if string(got) != string(frame) {
			t.Errorf("payload = %x, want %x", got, frame)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for frame")
	}
}

func TestIntegration_WildcardControl(t *testing.T) {
	pub := connectOrSkip(t, "secretbox-int-wild-pub")
	sub := connectOrSkip(t, "secretbox-int-wild-sub")

	var mu sync.Mutex
	var got []string
	var count atomic.Int32
	if err := sub.Subscribe(Topics{}.AllChainControl(), 1, func(topic string, _ []byte) error {
		mu.Lock()
		got = append(got, topic)
		mu.Unlock()
		count.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	for _, chain := range []string{"intro", "finale"} {
		if err := pub.Publish(Topics{}.ChainControl(chain, OpArm), nil, 1, false); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for count.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Errorf("received %v, want two control topics", got)
	}
}

func TestIntegration_PublishJSON(t *testing.T) {
	pub := connectOrSkip(t, "secretbox-int-json-pub")
	sub := connectOrSkip(t, "secretbox-int-json-sub")

	received := make(chan []byte, 1)
	topic := Topics{}.ChainEvent("intro")
	if err := sub.Subscribe(topic, 1, func(_ string, payload []byte) error {
		received <- payload
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := pub.PublishJSON(topic, map[string]string{"type": "armed"}); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	select {
	case payload := <-received:
		var body map[string]string
		if err := json.Unmarshal(payload, &body); err != nil || body["type"] != "armed" {
			t.Errorf("payload = %s (%v)", payload, err)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for event")
	}
}

func TestIntegration_Stats(t *testing.T) {
	client := connectOrSkip(t, "secretbox-int-stats")
	client.SetOnConnect(func() {})
	client.SetOnDisconnect(func(error) {})

	if err := client.Subscribe(Topics{}.I2CReceive(), 1, func(string, []byte) error { return nil }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	st := client.Stats()
	if !st.Connected || st.Subscriptions != 1 || st.Reconnects != 0 || st.LastError != "" {
		t.Errorf("Stats() = %+v", st)
	}
}
