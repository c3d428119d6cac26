package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
)

const hubWriteWait = 5 * time.Second

// Hub broadcasts notifications to websocket subscribers.
type Hub struct {
	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]struct{}
	lock     sync.Mutex
	log      *logger.Logger
}

var (
	_ Channel      = (*Hub)(nil)
	_ http.Handler = (*Hub)(nil)
)

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
		lock:    sync.Mutex{},
		log:     log,
	}
}

// Name implements Channel.
func (h *Hub) Name() string {
	return "websocket"
}

// ServeHTTP upgrades the request and subscribes the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", zap.Error(err))

		return
	}

	h.lock.Lock()
	h.clients[conn] = struct{}{}
	h.lock.Unlock()

	go h.readLoop(conn)
}

// readLoop discards client frames and unsubscribes the client once it goes away.
func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.remove(conn)

			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
}

// Clients returns the number of subscribers.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()

	return len(h.clients)
}

// Send implements Channel by broadcasting n as JSON. Subscribers that fail are dropped.
func (h *Hub) Send(_ context.Context, n types.Notification) error {
	message, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNotificationFailed, "failed to encode notification", err)
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	for client := range h.clients {
		_ = client.SetWriteDeadline(time.Now().Add(hubWriteWait))

		if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
			_ = client.Close()
			delete(h.clients, client)
		}
	}

	return nil
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.lock.Lock()
	defer h.lock.Unlock()

	for client := range h.clients {
		_ = client.Close()
		delete(h.clients, client)
	}
}
