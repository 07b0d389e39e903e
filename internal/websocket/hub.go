// Package websocket pushes entity changes and sync advisories to
// connected UIs. Sync advisories are how the engine's non-fatal
// calendar/notification failures reach the user.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a real-time update broadcast to all clients.
type Message struct {
	Type    string         `json:"type"`
	Entity  string         `json:"entity,omitempty"`
	Action  string         `json:"action,omitempty"`
	ID      string         `json:"id,omitempty"`
	Channel string         `json:"channel,omitempty"`
	Text    string         `json:"text,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// NewMessage creates an entity-change message, e.g. chore/created.
func NewMessage(entity, action, id string, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// NewAdvisory creates a sync-warning message for a chore. Advisories are
// informational: the local change already succeeded.
func NewAdvisory(channel, choreID, text string) Message {
	return Message{
		Type:    "sync_advisory",
		Entity:  "chore",
		ID:      choreID,
		Channel: channel,
		Text:    text,
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts
// messages to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients. Clients with a
// full buffer miss the message rather than blocking the sender.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
