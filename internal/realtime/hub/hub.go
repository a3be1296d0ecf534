package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/joywufn/portfolio-insight/backend/internal/realtime"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

const (
	// Ping/Pong settings
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second

	maxMessageSize = 4096

	// sendBuffer frames may queue per client before it counts as slow
	sendBuffer = 16
)

// Snapshotter supplies the latest tick of every broadcast symbol
type Snapshotter interface {
	Snapshot() []realtime.PriceTick
}

// Hub fans price frames out to websocket clients. A client that cannot
// keep up with its send queue is disconnected.
// ⭐ SSOT: websocket connections are owned here only
type Hub struct {
	source   Snapshotter
	logger   *logger.Logger
	interval time.Duration
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// New creates a hub broadcasting source every interval
func New(source Snapshotter, interval time.Duration, log *logger.Logger) *Hub {
	return &Hub{
		source:   source,
		logger:   log.WithComponent("ws_hub"),
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

// ServeHTTP upgrades the request and sends initial_data
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}

	// queued before registration so broadcasts cannot close send first
	if frame, err := encode(realtime.MessageInitialData, h.source.Snapshot()); err == nil {
		c.send <- frame
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.WithFields(map[string]interface{}{
		"remote":  r.RemoteAddr,
		"clients": count,
	}).Info("WebSocket connected")

	go c.writePump()
	go c.readPump()
}

// Run broadcasts price_update every interval until ctx ends, then closes
// every client
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.Broadcast(realtime.MessagePriceUpdate, h.source.Snapshot())
		}
	}
}

// Broadcast queues one frame on every client; full queues drop the client
func (h *Hub) Broadcast(kind realtime.MessageType, ticks []realtime.PriceTick) {
	frame, err := encode(kind, ticks)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode broadcast")
		return
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.remove(c)
	}
	if len(slow) > 0 {
		h.logger.WithField("count", len(slow)).Warn("Dropped slow WebSocket clients")
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		c.close()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

// close stops the write pump, which closes the connection
func (c *client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// readPump discards client frames and keeps the read deadline moving on pong
func (c *client) readPump() {
	defer c.hub.remove(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.WithError(err).Debug("WebSocket read failed")
			}
			return
		}
	}
}

// writePump owns all writes to the connection
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.hub.remove(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.hub.remove(c)
				return
			}
		}
	}
}

func encode(kind realtime.MessageType, ticks []realtime.PriceTick) ([]byte, error) {
	if ticks == nil {
		ticks = []realtime.PriceTick{}
	}
	return json.Marshal(realtime.Message{Type: kind, Updates: ticks})
}
