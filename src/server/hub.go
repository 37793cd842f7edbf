package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"mwtrader/src/engine"
)

const writeWait = 5 * time.Second

// Hub fans engine events out to connected websocket clients. Slow or
// broken clients are dropped; publishing never blocks the trading loop.
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The feed is read-only telemetry for local dashboards.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Publish sends the event to every connected client.
func (h *Hub) Publish(event engine.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.WithError(err).Debug("Dropping slow websocket client")
			_ = conn.Close()
			delete(h.clients, conn)
		}
	}
}

// HandleWS upgrades the request and keeps the connection registered until
// the client goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Error("Websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	logger.WithField("remote", conn.RemoteAddr().String()).Info("Websocket client connected")

	// Read loop only to observe the close; the feed is one-way.
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			_ = conn.Close()
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
