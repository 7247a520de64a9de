package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/secretbox-core/internal/infrastructure/config"
)

// Client is the controller's broker link. It carries inbound I2C frames and
// chain control verbs, and outbound sound requests, chain events and the
// retained system status.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions are restored after every reconnect.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	subMu         sync.RWMutex
	subscriptions map[string]subscription

	// link is the state paho last reported. reconnects counts every
	// connection after the first.
	link       atomic.Bool
	reconnects atomic.Uint64
	everUp     atomic.Bool

	hooksMu sync.RWMutex
	hooks   hooks
}

// hooks are the optional observers of the link.
type hooks struct {
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
	lastErr      error
	lastDown     time.Time
}

// Logger is satisfied by logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler receives one inbound message.
//
// Handlers run on paho's goroutines and should not block for long.
//
// Parameters:
//   - topic: The concrete topic, wildcards expanded (secretbox/chain/intro/arm)
//   - payload: The raw payload; a binary frame on secretbox/i2c/rx
//
// Returns:
//   - error: Logged at warn level; the message is acknowledged regardless
type MessageHandler func(topic string, payload []byte) error

// LinkStats describes the broker link for status endpoints.
type LinkStats struct {
	Connected     bool
	Reconnects    uint64
	Subscriptions int
	LastError     string
	LastDown      time.Time
}

// Connect dials the broker and blocks until the first connection succeeds.
//
// The broker is told to publish an offline status on secretbox/system/status
// if the controller vanishes, and the controller publishes its own online
// status on every (re)connect. Paho reconnects in the background.
//
// Parameters:
//   - cfg: The mqtt section of config.yaml
//
// Returns:
//   - *Client: A connected client
//   - error: ErrConnectionFailed when the broker refuses or does not answer
//     within the connect timeout
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := newClient(cfg)

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.up() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.down(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.log(func(l Logger) { l.Info("MQTT reconnecting", "broker", cfg.Broker.Host) })
	})

	c.client = pahomqtt.NewClient(opts)
	if err := wait(c.client.Connect(), defaultConnectTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs asynchronously.
	c.link.Store(true)
	return c, nil
}

func newClient(cfg config.MQTTConfig) *Client {
	return &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}
}

// wait resolves a paho token within d.
func wait(token pahomqtt.Token, d time.Duration) error {
	if !token.WaitTimeout(d) {
		return fmt.Errorf("timeout after %v", d)
	}
	return token.Error()
}

func (c *Client) up() {
	c.link.Store(true)
	if c.everUp.Swap(true) {
		c.reconnects.Add(1)
	}

	c.restoreSubscriptions()
	c.publishStatus(statusOnline, "")

	c.hooksMu.RLock()
	fn := c.hooks.onConnect
	c.hooksMu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) down(err error) {
	c.link.Store(false)

	c.hooksMu.Lock()
	c.hooks.lastErr = err
	c.hooks.lastDown = time.Now().UTC()
	fn, logger := c.hooks.onDisconnect, c.hooks.logger
	c.hooksMu.Unlock()

	if logger != nil {
		logger.Warn("MQTT connection lost", "error", err)
	}
	if fn != nil {
		fn(err)
	}
}

func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for topic, sub := range c.subscriptions {
		// A failure here shows up as missing traffic until the next reconnect.
		c.client.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	payload := statusPayload(c.cfg.Broker.ClientID, status, reason)
	return c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
}

// Close announces a graceful offline status and disconnects.
//
// The graceful status carries reason "graceful_shutdown" so dashboards can
// tell a stopped controller from a crashed one (the Last Will).
//
// Returns:
//   - error: Always nil; a client that never connected is a no-op
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		c.publishStatus(statusOffline, reasonShutdown).WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.link.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	return c.client != nil && c.link.Load() && c.client.IsConnected()
}

// Reconnects returns how many times the link has come back after a loss.
func (c *Client) Reconnects() uint64 {
	return c.reconnects.Load()
}

// Stats snapshots the link.
func (c *Client) Stats() LinkStats {
	c.hooksMu.RLock()
	lastErr, lastDown := c.hooks.lastErr, c.hooks.lastDown
	c.hooksMu.RUnlock()

	st := LinkStats{
		Connected:     c.IsConnected(),
		Reconnects:    c.Reconnects(),
		Subscriptions: c.SubscriptionCount(),
		LastDown:      lastDown,
	}
	if lastErr != nil {
		st.LastError = lastErr.Error()
	}
	return st
}

// SetOnConnect sets a callback run after every connect, initial or not.
func (c *Client) SetOnConnect(fn func()) {
	c.hooksMu.Lock()
	c.hooks.onConnect = fn
	c.hooksMu.Unlock()
}

// SetOnDisconnect sets a callback run with the reason whenever the link
// drops.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.hooksMu.Lock()
	c.hooks.onDisconnect = fn
	c.hooksMu.Unlock()
}

// SetLogger sets the logger for handler errors, panics and link changes.
// Without one they are dropped.
func (c *Client) SetLogger(logger Logger) {
	c.hooksMu.Lock()
	c.hooks.logger = logger
	c.hooksMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.hooksMu.RLock()
	defer c.hooksMu.RUnlock()
	return c.hooks.logger
}

// log runs fn when a logger is set.
func (c *Client) log(fn func(Logger)) {
	if l := c.getLogger(); l != nil {
		fn(l)
	}
}

// wrapHandler adapts handler to paho, recovering panics and logging errors.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		topic := msg.Topic()
		defer func() {
			if r := recover(); r != nil {
				c.log(func(l Logger) { l.Error("MQTT handler panic recovered", "topic", topic, "panic", r) })
			}
		}()

		if err := handler(topic, msg.Payload()); err != nil {
			c.log(func(l Logger) { l.Warn("MQTT handler returned error", "topic", topic, "error", err) })
		}
	}
}
