package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/secretbox-core/internal/infrastructure/config"
)

// Tests in this file need no broker. Broker round trips live in
// integration_test.go behind the integration build tag.

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// mockLogger implements Logger for testing.
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
	warns  []string
}

func (l *mockLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	l.infos = append(l.infos, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

// =============================================================================
// Handler Wrapping
// =============================================================================

func TestWrapHandler_PassesMessage(t *testing.T) {
	c := &Client{}
	var gotTopic string
	var gotPayload []byte

	h := c.wrapHandler(func(topic string, payload []byte) error {
		gotTopic, gotPayload = topic, payload
		return nil
	})
	h(nil, fakeMessage{topic: "secretbox/i2c/rx", payload: []byte{0x06}})

	if gotTopic != "secretbox/i2c/rx" || len(gotPayload) != 1 || gotPayload[0] != 0x06 {
		t.Errorf("handler got (%q, %v)", gotTopic, gotPayload)
	}
}

func TestWrapHandler_LogsErrors(t *testing.T) {
	c := &Client{}
	logger := &mockLogger{}
	c.SetLogger(logger)

	h := c.wrapHandler(func(string, []byte) error { return errors.New("bad frame") })
	h(nil, fakeMessage{topic: "secretbox/i2c/rx"})

	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one entry", logger.warns)
	}
}

func TestWrapHandler_RecoversPanic(t *testing.T) {
	c := &Client{}
	logger := &mockLogger{}
	c.SetLogger(logger)

	h := c.wrapHandler(func(string, []byte) error { panic("boom") })
	h(nil, fakeMessage{topic: "secretbox/chain/intro/arm"})

	if len(logger.errors) != 1 {
		t.Errorf("errors = %v, want one panic entry", logger.errors)
	}
}

func TestWrapHandler_NoLogger(t *testing.T) {
	c := &Client{}
	h := c.wrapHandler(func(string, []byte) error { return errors.New("dropped") })
	h(nil, fakeMessage{topic: "t"})
}

func TestSetLogger(t *testing.T) {
	c := &Client{}
	c.SetLogger(&mockLogger{})
	if c.getLogger() == nil {
		t.Error("getLogger() = nil after SetLogger()")
	}
	c.SetLogger(nil)
	if c.getLogger() != nil {
		t.Error("getLogger() should be nil after SetLogger(nil)")
	}
}

// =============================================================================
// Disconnected Client
// =============================================================================

func TestIsConnected_InitialState(t *testing.T) {
	if (&Client{}).IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestCloseNil(t *testing.T) {
	if err := (&Client{}).Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

func TestHealthCheck_Disconnected(t *testing.T) {
	c := &Client{}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", nil, 1, ErrInvalidTopic},
		{"qos 3", "secretbox/sound/play", nil, 3, ErrInvalidQoS},
		{"oversized", "secretbox/sound/play", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"disconnected", "secretbox/sound/play", []byte("{}"), 1, ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := c.PublishJSON("secretbox/sound/play", func() {}); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("PublishJSON(func) error = %v, want ErrPublishFailed", err)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}
	noop := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v", err)
	}
	if err := c.Subscribe("secretbox/#", 3, noop); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("qos 3 error = %v", err)
	}
	if err := c.Subscribe("secretbox/#", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v", err)
	}
	if err := c.Subscribe("secretbox/#", 1, noop); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected error = %v", err)
	}
	if c.SubscriptionCount() != 0 || c.HasSubscription("secretbox/#") {
		t.Error("failed subscribe was tracked")
	}
	if err := c.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(\"\") error = %v", err)
	}
}

func TestLinkTransitions(t *testing.T) {
	cfg := config.MQTTConfig{Broker: config.MQTTBrokerConfig{Host: "127.0.0.1", Port: 1883, ClientID: "box-1"}}
	c := newClient(cfg)
	// Never connected: status publishes fail quietly.
	c.client = pahomqtt.NewClient(buildClientOptions(cfg))

	logger := &mockLogger{}
	c.SetLogger(logger)
	var ups int
	var lost error
	c.SetOnConnect(func() { ups++ })
	c.SetOnDisconnect(func(err error) { lost = err })

	c.up()
	c.down(errors.New("EOF"))
	c.up()

	st := c.Stats()
	if ups != 2 || st.Reconnects != 1 {
		t.Errorf("ups = %d, reconnects = %d, want 2 and 1", ups, st.Reconnects)
	}
	if lost == nil || st.LastError != "EOF" || st.LastDown.IsZero() {
		t.Errorf("lost = %v, stats = %+v", lost, st)
	}
	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want the lost connection", logger.warns)
	}
}

// =============================================================================
// Options and Payloads
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "broker.local", Port: 8883, TLS: true, ClientID: "box-7"},
		Auth:   config.MQTTAuthConfig{Username: "box", Password: "pw"},
	}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://broker.local:8883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "box-7" || opts.Username != "box" {
		t.Errorf("identity = %q/%q", opts.ClientID, opts.Username)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS not configured")
	}
	if !opts.CleanSession || !opts.AutoReconnect {
		t.Error("expected clean session with auto-reconnect")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(config.MQTTConfig{Broker: config.MQTTBrokerConfig{Host: "h", Port: 1883}})
	configureLWT(opts, "box-1")

	if !opts.WillEnabled || opts.WillTopic != "secretbox/system/status" || !opts.WillRetained {
		t.Errorf("will = %v %q retained=%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
	var st Status
	if err := json.Unmarshal(opts.WillPayload, &st); err != nil {
		t.Fatalf("will payload: %v", err)
	}
	if st.Status != statusOffline || st.Reason != reasonUnexpected || st.ClientID != "box-1" {
		t.Errorf("will status = %+v", st)
	}
}

func TestStatusPayload(t *testing.T) {
	var st Status
	if err := json.Unmarshal(statusPayload("box-1", statusOnline, ""), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.Status != "online" || st.Timestamp == "" {
		t.Errorf("status = %+v", st)
	}
	if strings.Contains(string(statusPayload("box-1", statusOnline, "")), "reason") {
		t.Error("empty reason should be omitted")
	}
}

// =============================================================================
// Topics
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"I2CReceive", topics.I2CReceive(), "secretbox/i2c/rx"},
		{"I2CAck", topics.I2CAck(), "secretbox/i2c/ack"},
		{"ChainControl", topics.ChainControl("intro", OpArm), "secretbox/chain/intro/arm"},
		{"SoundPlay", topics.SoundPlay(), "secretbox/sound/play"},
		{"ChainEvent", topics.ChainEvent("intro"), "secretbox/chain/intro/event"},
		{"SystemStatus", topics.SystemStatus(), "secretbox/system/status"},
		{"AllChainControl", topics.AllChainControl(), "secretbox/chain/+/+"},
		{"AllTopics", topics.AllTopics(), "secretbox/#"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestParseChainControl(t *testing.T) {
	tests := []struct {
		topic     string
		wantChain string
		wantOp    string
		wantOK    bool
	}{
		{"secretbox/chain/intro/arm", "intro", "arm", true},
		{"secretbox/chain/finale/event", "finale", "event", true},
		{"secretbox/chain//arm", "", "", false},
		{"secretbox/chain/intro", "", "", false},
		{"other/chain/intro/arm", "", "", false},
		{"secretbox/sound/play/now", "", "", false},
	}

	for _, tt := range tests {
		chain, op, ok := Topics{}.ParseChainControl(tt.topic)
		if ok != tt.wantOK || chain != tt.wantChain || op != tt.wantOp {
			t.Errorf("ParseChainControl(%q) = (%q, %q, %v)", tt.topic, chain, op, ok)
		}
	}
}
