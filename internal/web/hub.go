package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/louisbranch/metropole/internal/notify"
	"github.com/louisbranch/metropole/internal/web/metrics"
)

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans simulation notifications out to connected websocket clients.
type Hub struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewHub creates a Hub. Run must be started before clients connect.
func NewHub(logger *slog.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 256),
		logger:     logger,
		metrics:    m,
	}
}

// Run owns the client set until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.metrics.SetConnectedClients(0)
			return
		case client := <-h.register:
			h.clients[client] = true
			h.metrics.SetConnectedClients(len(h.clients))
		case client := <-h.unregister:
			if h.clients[client] {
				delete(h.clients, client)
				close(client.send)
			}
			h.metrics.SetConnectedClients(len(h.clients))
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop it rather than stall the hub.
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Notify implements notify.Handler, broadcasting each notification as a JSON
// envelope. Marshal failures are logged and dropped.
func (h *Hub) Notify(notification notify.Notification) {
	envelope := struct {
		Kind    string `json:"kind"`
		Payload any    `json:"payload,omitempty"`
	}{Kind: string(notification.Kind), Payload: notification.Payload}

	message, err := json.Marshal(envelope)
	if err != nil {
		h.logger.Warn("drop unmarshalable notification", "kind", string(notification.Kind), "error", err)
		return
	}
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("drop notification, broadcast buffer full", "kind", string(notification.Kind))
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request and attaches the client to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := &wsClient{conn: conn, send: make(chan []byte, 128)}
	h.register <- client
	go h.writer(client)
	go h.reader(client)
}

func (h *Hub) writer(client *wsClient) {
	for message := range client.send {
		if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
	_ = client.conn.Close()
}

// reader drains inbound frames so pings and close frames are processed. The
// API is command-over-HTTP; websocket traffic is outbound only.
func (h *Hub) reader(client *wsClient) {
	defer func() {
		h.unregister <- client
		_ = client.conn.Close()
	}()
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
