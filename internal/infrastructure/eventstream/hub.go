package eventstream

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/senda-network/senda-daemon/internal/core/ports"
	"github.com/senda-network/senda-daemon/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// Hub keeps the live websocket clients and broadcasts committed events to
// them. Clients that can't keep up are disconnected.
type Hub struct {
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics

	lock    *sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	// recipient is the party key the client streams events for. Empty
	// for operator clients, receiving every event.
	recipient string
	topics    map[string]struct{}
	send      chan []byte
}

func (c *client) wants(topic string, recipients []string) bool {
	if len(c.recipient) > 0 && !contains(recipients, c.recipient) {
		return false
	}
	if len(c.topics) <= 0 {
		return true
	}
	_, ok := c.topics[topic]
	return ok
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		metrics: m,
		lock:    &sync.RWMutex{},
		clients: make(map[*client]struct{}),
	}
}

// ServeStream upgrades the request to a websocket connection streaming the
// events of recipient, or every event if recipient is empty. The caller is
// in charge of authenticating recipient. The optional comma separated
// "topics" query param restricts the events received.
func (h *Hub) ServeStream(w http.ResponseWriter, r *http.Request, recipient string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("event stream upgrade failed")
		return
	}

	c := &client{
		conn:      conn,
		recipient: recipient,
		topics:    parseTopics(r.URL.Query().Get("topics")),
		send:      make(chan []byte, sendBufferSize),
	}
	if !h.register(c) {
		//nolint
		conn.Close()
		return
	}

	go h.writeLoop(c)
	go h.readLoop(c)
}

var _ ports.EventStream = (*Hub)(nil)

func (h *Hub) Broadcast(topic string, recipients []string, message []byte) {
	h.lock.RLock()
	slow := make([]*client, 0)
	for c := range h.clients {
		if !c.wants(topic, recipients) {
			continue
		}
		select {
		case c.send <- message:
		default:
			slow = append(slow, c)
		}
	}
	h.lock.RUnlock()

	for _, c := range slow {
		log.Warn("event stream client too slow, disconnecting")
		h.unregister(c)
	}
}

func (h *Hub) NumClients() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.clients)
}

// Close disconnects every client. The hub does not accept new ones after.
func (h *Hub) Close() {
	h.lock.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.lock.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) bool {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.metrics != nil {
		h.metrics.EventStreamClients.Inc()
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if h.metrics != nil {
		h.metrics.EventStreamClients.Dec()
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		//nolint
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			//nolint
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				//nolint
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.unregister(c)
				return
			}
		case <-ticker.C:
			//nolint
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

// readLoop only drains control frames, clients are not expected to send.
func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)

	//nolint
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(
				err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			) {
				log.WithError(err).Debug("event stream client disconnected")
			}
			return
		}
	}
}

func contains(list []string, str string) bool {
	for _, s := range list {
		if s == str {
			return true
		}
	}
	return false
}

func parseTopics(str string) map[string]struct{} {
	topics := make(map[string]struct{})
	for _, t := range strings.Split(str, ",") {
		if t = strings.TrimSpace(t); len(t) > 0 {
			topics[t] = struct{}{}
		}
	}
	return topics
}
