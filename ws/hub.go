// Package ws fans tournament updates out to websocket subscribers. There is a
// single broadcast group because the deployment hosts a single tournament.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Message is the envelope every subscriber receives.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	broadcast  chan []byte

	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		clients:    make(map[*Client]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client registered", slog.Int("clients", h.clientCount()))

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client unregistered", slog.Int("clients", h.clientCount()))

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop the message rather than block the hub.
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) publish(msgType string, payload interface{}) {
	raw, err := json.Marshal(Message{Type: msgType, Payload: payload})
	if err != nil {
		h.logger.Error("failed to marshal websocket message", slog.String("type", msgType), slog.Any("error", err))
		return
	}
	select {
	case h.broadcast <- raw:
	default:
		h.logger.Warn("websocket broadcast buffer full, dropping message", slog.String("type", msgType))
	}
}

// PublishMatchUpdate implements services.NotificationSink.
func (h *Hub) PublishMatchUpdate(match *models.Match) {
	h.publish("MATCH_UPDATED", match)
}

// PublishBracketUpdate implements services.NotificationSink.
func (h *Hub) PublishBracketUpdate(action string, payload interface{}) {
	h.publish(action, payload)
}
