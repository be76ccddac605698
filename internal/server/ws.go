package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/wavecoach/internal/wave"
)

const (
	liveSendBuffer   = 64
	liveWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LiveMessage is one analyzed frame as sent to live feed clients.
type LiveMessage struct {
	SessionID string      `json:"session_id"`
	Result    wave.Result `json:"result"`
}

type liveClient struct {
	conn    *websocket.Conn
	session string
	send    chan []byte
}

// LiveHub broadcasts analysis results to WebSocket clients.
// Clients may subscribe to a single session with ?session=<id>.
type LiveHub struct {
	clients map[*liveClient]struct{}
	gauge   prometheus.Gauge
	mu      sync.RWMutex
}

// NewLiveHub creates a hub that tracks its client count in gauge.
func NewLiveHub(gauge prometheus.Gauge) *LiveHub {
	return &LiveHub{
		clients: make(map[*liveClient]struct{}),
		gauge:   gauge,
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LiveHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("websocket upgrade error: %s", err)
		return
	}

	c := &liveClient{
		conn:    conn,
		session: r.URL.Query().Get("session"),
		send:    make(chan []byte, liveSendBuffer),
	}
	h.register(c)
	defer h.unregister(c)

	go c.writeLoop()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *LiveHub) register(c *liveClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	if h.gauge != nil {
		h.gauge.Inc()
	}
}

func (h *LiveHub) unregister(c *liveClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	if h.gauge != nil {
		h.gauge.Dec()
	}
}

// writeLoop drains the client's queue until unregister closes it.
func (c *liveClient) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debugf("live client write: %s", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Publish queues a result for every interested client. It never blocks;
// a client whose queue is full misses the message.
func (h *LiveHub) Publish(sessionID string, res wave.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(LiveMessage{SessionID: sessionID, Result: res})
	if err != nil {
		log.Errorf("marshal live message: %s", err)
		return
	}

	for c := range h.clients {
		if c.session != "" && c.session != sessionID {
			continue
		}
		select {
		case c.send <- msg:
		default:
			log.Debugf("live client queue full, dropping frame for session %s", sessionID)
		}
	}
}

// Clients returns the number of connected clients.
func (h *LiveHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *LiveHub) Close() {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c.conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.Close()
	}
}
