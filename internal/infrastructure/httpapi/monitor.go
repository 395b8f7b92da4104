package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Sangdi-IT/yq-monitor/internal/agent"
	"github.com/Sangdi-IT/yq-monitor/internal/domain"
)

const (
	monitorWriteWait  = 2 * time.Second
	monitorClientSend = 64
	monitorListenBuf  = 256
)

// monitorClient is one WebSocket connection with its own writer goroutine.
type monitorClient struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *monitorClient) writeLoop() {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(monitorWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// MonitorHub fans notifications out to WebSocket clients and in-process listeners.
// Delivery is best-effort and never blocks the notifier: a full client or listener
// buffer drops the event.
type MonitorHub struct {
	mu       sync.RWMutex
	clients  map[*monitorClient]struct{}
	upgrader websocket.Upgrader
	// listeners are in-process subscribers (SSE forwarders)
	lmu       sync.RWMutex
	listeners map[chan domain.Notification]struct{}
}

var _ agent.Notifier = (*MonitorHub)(nil)

func NewMonitorHub() *MonitorHub {
	return &MonitorHub{
		clients:   make(map[*monitorClient]struct{}),
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		listeners: make(map[chan domain.Notification]struct{}),
	}
}

func (h *MonitorHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	cl := &monitorClient{conn: c, send: make(chan []byte, monitorClientSend)}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	go cl.writeLoop()
	_ = c.SetReadDeadline(time.Time{})
	for {
		// reads only detect the client going away
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	delete(h.clients, cl)
	close(cl.send)
	h.mu.Unlock()
	_ = c.Close()
}

// Notify implements agent.Notifier.
func (h *MonitorHub) Notify(n domain.Notification) { h.Broadcast(n) }

// Broadcast queues n for every client and listener. Sends happen under the read
// locks so a concurrent disconnect cannot close a channel mid-send.
func (h *MonitorHub) Broadcast(n domain.Notification) {
	data, _ := json.Marshal(n)
	h.mu.RLock()
	for cl := range h.clients {
		select {
		case cl.send <- data:
		default: // slow client
		}
	}
	h.mu.RUnlock()
	h.lmu.RLock()
	for ch := range h.listeners {
		select {
		case ch <- n:
		default: // slow listener
		}
	}
	h.lmu.RUnlock()
}

// Clients reports the number of connected WebSocket clients.
func (h *MonitorHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribe returns a channel receiving notifications. Caller must Unsubscribe.
func (h *MonitorHub) Subscribe() chan domain.Notification {
	ch := make(chan domain.Notification, monitorListenBuf)
	h.lmu.Lock()
	h.listeners[ch] = struct{}{}
	h.lmu.Unlock()
	return ch
}

func (h *MonitorHub) Unsubscribe(ch chan domain.Notification) {
	h.lmu.Lock()
	if _, ok := h.listeners[ch]; ok {
		delete(h.listeners, ch)
		close(ch)
	}
	h.lmu.Unlock()
}
