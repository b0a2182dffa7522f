package live

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Event types
const (
	EventBoard = "board"
	EventClock = "clock"
)

const (
	defaultWriteWait  = 10 * time.Second
	defaultPongWait   = 60 * time.Second
	defaultSendBuffer = 16
)

type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// BoardData carries the re-rendered table markup.
type BoardData struct {
	HTML string `json:"html"`
}

// client owns the write side of one connection. Only its writer goroutine
// touches the connection for writes.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub holds the connected dashboards and fans messages out to them.
// Broadcast never waits on a connection: each client has a bounded queue,
// and a client whose queue is full is dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*client

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
	sendBuffer int
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]*client),
		writeWait:  defaultWriteWait,
		pongWait:   defaultPongWait,
		pingPeriod: defaultPongWait * 9 / 10,
		sendBuffer: defaultSendBuffer,
	}
}

// Register adds conn and queues the initial messages ahead of any
// broadcast.
func (h *Hub) Register(conn *websocket.Conn, initial ...Message) error {
	payloads := make([][]byte, 0, len(initial))
	for _, msg := range initial {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		payloads = append(payloads, data)
	}

	c := &client{conn: conn, send: make(chan []byte, h.sendBuffer+len(payloads))}
	for _, data := range payloads {
		c.send <- data
	}

	h.mu.Lock()
	h.clients[conn] = c
	h.mu.Unlock()

	go h.writePump(c)
	return nil
}

// Unregister drops conn and closes it.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	c, ok := h.clients[conn]
	if ok {
		h.remove(c)
	}
	h.mu.Unlock()
	conn.Close()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues the event for every client. Clients that cannot keep
// up are dropped.
func (h *Hub) Broadcast(event string, data any) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		log.WithError(err).WithField("event", event).Error("failed to marshal broadcast")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			log.WithField("event", event).Warn("websocket client too slow; dropping")
			h.remove(c)
		}
	}
}

// ReadPump reads from conn until it fails, keeping the read deadline alive
// with pongs, and then unregisters it. It blocks.
func (h *Hub) ReadPump(conn *websocket.Conn) {
	defer h.Unregister(conn)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// remove must be called with h.mu held. Closing the queue stops the
// writer, which closes the connection.
func (h *Hub) remove(c *client) {
	if h.clients[c.conn] != c {
		return
	}
	delete(h.clients, c.conn)
	close(c.send)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.WithError(err).Debug("dropping websocket client")
				h.drop(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(c)
				return
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c)
}
