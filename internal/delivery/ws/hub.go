package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Vovarama1992/watchparty/internal/metrics"
	"github.com/Vovarama1992/watchparty/internal/ports"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 64
)

// Envelope is the frame format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is one live push-channel connection.
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// Hub owns the membership set. Delivery is best-effort: every publish is
// offered once to each client's send buffer and dropped if it is full.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		log:     log,
	}
}

var _ ports.Broadcaster = (*Hub)(nil)

func (h *Hub) Register(conn *websocket.Conn) *Client {
	c := &Client{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.Connections.Inc()
	h.log.Info("client registered", zap.String("client_id", c.ID), zap.Int("conns", n))
	return c
}

// Unregister removes c and closes its send queue, which stops its write pump.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.once.Do(func() { close(c.send) })
	metrics.Connections.Dec()
	h.log.Info("client unregistered", zap.String("client_id", c.ID), zap.Int("conns", n))
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish delivers event to every connected client.
func (h *Hub) Publish(event string, payload any) {
	h.broadcast(nil, event, payload)
}

// PublishExcept delivers event to every connected client but sender.
func (h *Hub) PublishExcept(sender *Client, event string, payload any) {
	h.broadcast(sender, event, payload)
}

func (h *Hub) broadcast(skip *Client, event string, payload any) {
	msg, err := encode(event, payload)
	if err != nil {
		h.log.Error("marshal event failed", zap.String("event", event), zap.Error(err))
		return
	}

	// send channels are closed only after removal under the write lock,
	// so enqueueing under the read lock never hits a closed channel
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.clients {
		if c == skip {
			continue
		}
		select {
		case c.send <- msg:
			sent++
		default:
			metrics.Dropped.WithLabelValues(event).Inc()
			h.log.Warn("send buffer full, dropping", zap.String("client_id", c.ID), zap.String("event", event))
		}
	}

	metrics.Broadcasts.WithLabelValues(event).Inc()
	h.log.Debug("broadcast", zap.String("event", event), zap.Int("delivered", sent), zap.Int("bytes", len(msg)))
}

func encode(event string, payload any) ([]byte, error) {
	var data json.RawMessage
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		data = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// writePump is the only writer on the socket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}
