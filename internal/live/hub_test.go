package live

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, hub *Hub, initial ...Message) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		if !assert.NoError(t, hub.Register(conn, initial...)) {
			conn.Close()
			return
		}
		go hub.ReadPump(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	return dialWith(t, srv, websocket.DefaultDialer)
}

func dialWith(t *testing.T, srv *httptest.Server, dialer *websocket.Dialer) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	require.Eventually(t, func() bool { return hub.Count() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_InitialMessages(t *testing.T) {
	hub := NewHub()
	srv := newServer(t, hub, Message{Event: EventBoard, Data: BoardData{HTML: "<div>t1</div>"}})

	conn := dial(t, srv)
	msg := readMessage(t, conn)

	assert.Equal(t, EventBoard, msg["event"])
	assert.Equal(t, map[string]any{"html": "<div>t1</div>"}, msg["data"])
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	srv := newServer(t, hub)

	a := dial(t, srv)
	b := dial(t, srv)
	waitForClients(t, hub, 2)

	hub.Broadcast(EventClock, map[string]string{"time": "09:00:00 AM", "date": "Saturday, October 17, 2026"})

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, EventClock, msg["event"])
		assert.Equal(t, "09:00:00 AM", msg["data"].(map[string]any)["time"])
	}
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub := NewHub()
	srv := newServer(t, hub)

	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)

	hub.Broadcast(EventBoard, BoardData{})
	assert.Equal(t, 0, hub.Count())
}

func TestHub_SlowClientDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub()
	hub.sendBuffer = 4
	srv := newServer(t, hub)

	// Never reads, so its socket buffers fill up.
	dialWith(t, srv, &websocket.Dialer{ReadBufferSize: 4096})
	waitForClients(t, hub, 1)

	markup := BoardData{HTML: strings.Repeat("x", 100*1024)}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Broadcast(EventBoard, markup)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast waited on a client that stopped reading")
	}
	waitForClients(t, hub, 0)

	healthy := dial(t, srv)
	waitForClients(t, hub, 1)
	hub.Broadcast(EventClock, map[string]string{"time": "10:00:00 AM"})
	assert.Equal(t, EventClock, readMessage(t, healthy)["event"])
}

func TestHub_Pings(t *testing.T) {
	hub := NewHub()
	hub.pingPeriod = 20 * time.Millisecond
	srv := newServer(t, hub)

	conn := dial(t, srv)
	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping received")
	}
}

func TestHub_DropsClientWithoutPongs(t *testing.T) {
	hub := NewHub()
	hub.pingPeriod = 20 * time.Millisecond
	hub.pongWait = 100 * time.Millisecond
	srv := newServer(t, hub)

	// Control frames are only answered while reading, so no pong comes back.
	dial(t, srv)
	waitForClients(t, hub, 1)
	waitForClients(t, hub, 0)
}
