package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/secretbox-core/internal/chain"
	"github.com/nerrad567/secretbox-core/internal/infrastructure/config"
	"github.com/nerrad567/secretbox-core/internal/infrastructure/logging"
	"github.com/nerrad567/secretbox-core/internal/pin"
)

// Message types on the event stream.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// Event channels.
const (
	// ChannelChainEvent carries every chain.Event.
	ChannelChainEvent = "chain.event"
	// ChannelPinState carries a pin.Snapshot after a pattern step.
	ChannelPinState = "pin.state"
)

var knownChannels = []string{ChannelChainEvent, ChannelPinState}

// wsSendBufferSize is the per-client outbound queue. A client that falls
// this far behind misses events.
const wsSendBufferSize = 256

// WSMessage is sent to clients.
type WSMessage struct {
	Type      string    `json:"type"`
	ID        string    `json:"id,omitempty"`
	Channel   string    `json:"channel,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// WSRequest is sent by clients. Chains narrows a chain.event subscription
// to the named chains; empty means all.
type WSRequest struct {
	Type     string   `json:"type"`
	ID       string   `json:"id,omitempty"`
	Channels []string `json:"channels,omitempty"`
	Chains   []string `json:"chains,omitempty"`
}

// Hub fans engine events out to connected clients.
type Hub struct {
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// WSClient is one connected event-stream consumer.
type WSClient struct {
	hub     *Hub
	conn    *websocket.Conn
	subject string

	mu       sync.Mutex
	send     chan []byte
	closed   bool
	channels map[string]bool
	chains   map[string]bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewHub creates an empty hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled and then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
		c.conn.Close()
	}
}

func (h *Hub) add(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "subject", c.subject, "clients", n)
}

func (h *Hub) remove(c *WSClient) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	c.close()
	h.logger.Debug("websocket client disconnected", "subject", c.subject, "clients", n)
}

// ChainEvent sends ev to clients subscribed to chain.event for ev's chain.
// It never blocks.
func (h *Hub) ChainEvent(ev chain.Event) {
	h.publish(ChannelChainEvent, ev.Chain, ev)
}

// PinState sends a pin snapshot to clients subscribed to pin.state.
func (h *Hub) PinState(snap pin.Snapshot) {
	h.publish(ChannelPinState, "", snap)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// publish marshals once and queues the frame on every interested client.
func (h *Hub) publish(channel, chainName string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		Channel:   channel,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("marshalling websocket event", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if c.wants(channel, chainName) {
			c.enqueue(data)
		}
	}
}

// handleWebSocket upgrades the connection after consuming a ticket from
// POST /auth/ws-ticket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	entry, ok := s.tickets.consume(ticket)
	if !ok {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &WSClient{
		hub:      s.hub,
		conn:     conn,
		subject:  entry.subject,
		send:     make(chan []byte, wsSendBufferSize),
		channels: make(map[string]bool),
		chains:   make(map[string]bool),
	}
	s.hub.add(c)

	t := newWSTiming(s.wsCfg)
	go c.writeLoop(t)
	go c.readLoop(t, s.wsCfg.MaxMessageSize)
}

// wsTiming holds the keepalive durations derived from config.
type wsTiming struct {
	ping time.Duration
	pong time.Duration
}

func newWSTiming(cfg config.WebSocketConfig) wsTiming {
	t := wsTiming{
		ping: time.Duration(cfg.PingInterval) * time.Second,
		pong: time.Duration(cfg.PongTimeout) * time.Second,
	}
	if t.ping <= 0 {
		t.ping = 30 * time.Second
	}
	if t.pong <= 0 {
		t.pong = 10 * time.Second
	}
	return t
}

// readDeadline is how long a client may stay silent, pongs included.
func (t wsTiming) readDeadline() time.Time {
	return time.Now().Add(t.ping + t.pong)
}

func (c *WSClient) readLoop(t wsTiming, limit int) {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	if limit > 0 {
		c.conn.SetReadLimit(int64(limit))
	}
	c.conn.SetReadDeadline(t.readDeadline()) //nolint:errcheck // a failed deadline surfaces on the next read
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(t.readDeadline())
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read failed", "subject", c.subject, "error", err)
			}
			return
		}
		// Browsers that ignore protocol pings stay alive by talking.
		c.conn.SetReadDeadline(t.readDeadline()) //nolint:errcheck // see above
		c.handle(data)
	}
}

func (c *WSClient) writeLoop(t wsTiming) {
	ticker := time.NewTicker(t.ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(t.pong)) //nolint:errcheck // write reports it
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck // closing anyway
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(t.pong)) //nolint:errcheck // write reports it
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handle(data []byte) {
	var req WSRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply("", WSTypeError, map[string]string{"message": "invalid JSON message"})
		return
	}

	switch req.Type {
	case WSTypePing:
		c.reply(req.ID, WSTypePong, nil)
	case WSTypeSubscribe, WSTypeUnsubscribe:
		for _, ch := range req.Channels {
			if !slices.Contains(knownChannels, ch) {
				c.reply(req.ID, WSTypeError, map[string]string{"message": "unknown channel: " + ch})
				return
			}
		}
		c.subscribe(req.Type == WSTypeSubscribe, req.Channels, req.Chains)
		c.reply(req.ID, WSTypeResponse, map[string]any{
			req.Type + "d": req.Channels,
			"chains":       req.Chains,
		})
	default:
		c.reply(req.ID, WSTypeError, map[string]string{"message": "unknown message type: " + req.Type})
	}
}

func (c *WSClient) subscribe(on bool, channels, chains []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range channels {
		if on {
			c.channels[ch] = true
		} else {
			delete(c.channels, ch)
		}
	}
	for _, name := range chains {
		if on {
			c.chains[name] = true
		} else {
			delete(c.chains, name)
		}
	}
}

// wants reports whether the client takes an event. chainName is empty for
// channels that are not per-chain.
func (c *WSClient) wants(channel, chainName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.channels[channel] {
		return false
	}
	return chainName == "" || len(c.chains) == 0 || c.chains[chainName]
}

// enqueue drops data when the client is closed or its queue is full.
func (c *WSClient) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *WSClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err == nil {
		c.enqueue(data)
	}
}
