package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"retailpulse/internal/infrastructure"
	"retailpulse/pkg/contracts/events"
)

const (
	defaultPingPeriod = 30 * time.Second
	defaultPongWait   = 60 * time.Second
	broadcastBuffer   = 64
	statsInterval     = 30 * time.Second
)

// HubOption configures a Hub
type HubOption func(*Hub)

// WithMetrics records the connected client count on m
func WithMetrics(m *infrastructure.AnalyticsMetrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// WithKeepalive sets the ping period and pong deadline of every client.
// pingPeriod must be shorter than pongWait.
func WithKeepalive(pingPeriod, pongWait time.Duration) HubOption {
	return func(h *Hub) {
		if pingPeriod > 0 && pongWait > pingPeriod {
			h.pingPeriod = pingPeriod
			h.pongWait = pongWait
		}
	}
}

// HubStats is a snapshot of hub counters
type HubStats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesDropped  int64 `json:"messages_dropped"`
	SlowClients      int64 `json:"slow_clients"`
}

// Hub fans analytics events out to every connected client
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	pingPeriod time.Duration
	pongWait   time.Duration

	metrics *infrastructure.AnalyticsMetrics
	logger  *slog.Logger

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64
	slowClients      atomic.Int64
}

// NewHub creates a hub; call Start before registering clients
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		pingPeriod: defaultPingPeriod,
		pongWait:   defaultPongWait,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start runs the hub loop in its own goroutine; repeated calls are no-ops
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop disconnects every client and waits for the hub loop to exit
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

// Register adds a client; it returns immediately once the hub is stopped
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.quit:
	}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Publish broadcasts an event. It never blocks: when the broadcast queue is
// full the event is dropped and counted.
func (h *Hub) Publish(ctx context.Context, msgType events.MessageType, data interface{}) {
	msg := events.NewMessage(msgType, data)
	msg.ID = uuid.NewString()
	msg.TraceID = infrastructure.GetTraceID(ctx)

	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal websocket message",
			slog.String("message_type", string(msgType)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.messagesDropped.Add(1)
		h.logger.WarnContext(ctx, "broadcast queue full, dropping message",
			slog.String("message_type", string(msgType)))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns the hub counters
func (h *Hub) Stats() HubStats {
	return HubStats{
		ActiveClients:    h.ClientCount(),
		TotalConnections: h.totalConnections.Load(),
		MessagesSent:     h.messagesSent.Load(),
		MessagesDropped:  h.messagesDropped.Load(),
		SlowClients:      h.slowClients.Load(),
	}
}

func (h *Hub) run() {
	defer close(h.done)
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for c := range h.clients {
				h.removeLocked(c)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.totalConnections.Add(1)
			h.recordClients(c.context(), 1)

			h.logger.InfoContext(c.context(), "client registered",
				slog.String("client_id", c.id),
				slog.String("remote_addr", c.remoteAddr),
				slog.Int("total_clients", count))
			h.greet(c)

		case c := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[c]
			if ok {
				h.removeLocked(c)
			}
			count := len(h.clients)
			h.mu.Unlock()
			if ok {
				h.logger.InfoContext(c.context(), "client unregistered",
					slog.String("client_id", c.id),
					slog.Int("total_clients", count),
					slog.Duration("connection_duration", time.Since(c.connectedAt)))
			}

		case message := <-h.broadcast:
			h.fanOut(message)

		case <-ticker.C:
			stats := h.Stats()
			h.logger.Debug("websocket hub stats",
				slog.Int("active_clients", stats.ActiveClients),
				slog.Int64("total_connections", stats.TotalConnections),
				slog.Int64("messages_sent", stats.MessagesSent),
				slog.Int64("messages_dropped", stats.MessagesDropped),
				slog.Int("broadcast_queue", len(h.broadcast)))
		}
	}
}

// fanOut delivers message to every client, disconnecting clients whose
// send buffer is full
func (h *Hub) fanOut(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- message:
			h.messagesSent.Add(1)
		default:
			h.slowClients.Add(1)
			h.removeLocked(c)
			h.logger.WarnContext(c.context(), "client send buffer full, disconnecting",
				slog.String("client_id", c.id))
		}
	}
}

func (h *Hub) greet(c *Client) {
	msg := events.NewMessage(events.MessageTypeConnect, map[string]string{
		"status":    "connected",
		"client_id": c.id,
	})
	msg.TraceID = c.traceID
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
		h.logger.WarnContext(c.context(), "failed to send connection message, client buffer full",
			slog.String("client_id", c.id))
	}
}

// removeLocked drops c; h.mu must be held
func (h *Hub) removeLocked(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.recordClients(c.context(), -1)
}

func (h *Hub) recordClients(ctx context.Context, delta int64) {
	if h.metrics == nil {
		return
	}
	h.metrics.WebSocketClients.Add(ctx, delta)
}
