package transport

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Conductor fans telemetry samples out to browser clients over websockets.
// Wire it to Transport.OnTelemetry.
type Conductor struct {
	mu      sync.Mutex
	clients []*websocket.Conn
}

// Handler upgrades and registers a telemetry client. The read loop only
// exists to notice the client going away.
func (c *Conductor) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("telemetry upgrade failed")
		return
	}

	c.mu.Lock()
	c.clients = append(c.clients, conn)
	c.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	c.remove(conn)
	conn.Close()
}

// Broadcast sends a sample to every connected client, dropping the ones
// whose writes fail.
func (c *Conductor) Broadcast(sample TelemetrySample) {
	msg, err := json.Marshal(sample)
	if err != nil {
		return
	}

	c.mu.Lock()
	clients := make([]*websocket.Conn, len(c.clients))
	copy(clients, c.clients)
	c.mu.Unlock()

	for _, conn := range clients {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.remove(conn)
			conn.Close()
		}
	}
}

// ClientCount returns the number of attached telemetry clients.
func (c *Conductor) ClientCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

func (c *Conductor) remove(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.clients {
		if existing == conn {
			c.clients = append(c.clients[:i], c.clients[i+1:]...)
			return
		}
	}
}
