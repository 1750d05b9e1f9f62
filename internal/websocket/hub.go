package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"voicepilot-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// InboundHandler processes a message a client pushed up the UI channel
// (voice input, UI state updates).
type InboundHandler func(sessionID string, message []byte)

type Hub struct {
	// Registered clients map: SessionID -> List of Clients (multi-tab)
	clients map[string][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Inbound receives client->server messages; nil drops them.
	inbound InboundHandler

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

// SetInbound wires the handler for client-originated messages. Must be set
// before Run.
func (h *Hub) SetInbound(handler InboundHandler) {
	h.inbound = handler
}

func (h *Hub) Run() {
	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.SessionID]; ok {
				for i, c := range clients {
					if c == client {
						// Remove from slice
						h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.SessionID]) == 0 {
					delete(h.clients, client.SessionID)
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"session_id": client.SessionID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Send delivers a message to every connection watching the session, locally
// and (via redis) on other instances.
func (h *Hub) Send(sessionID string, data []byte) {
	// 1. Check locally
	h.mu.RLock()
	clients, localFound := h.clients[sessionID]
	h.mu.RUnlock()

	if localFound {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{"session_id": sessionID})
				close(client.Send)
				h.unregister <- client
			}
		}
	}

	// 2. Publish to Redis for other instances
	if h.rdb != nil {
		payload := map[string]interface{}{
			"target_session_id": sessionID,
			"message":           json.RawMessage(data),
		}
		jsonPayload, _ := json.Marshal(payload)
		h.rdb.Publish(context.Background(), "cluster_events", jsonPayload)
	}
}

// SendEvent wraps a typed payload in the standard envelope and delivers it.
func (h *Hub) SendEvent(sessionID, eventType string, payload interface{}) {
	data, err := json.Marshal(map[string]interface{}{
		"type": eventType,
		"data": payload,
	})
	if err != nil {
		h.logger.Error("Hub", "Failed to marshal event", map[string]interface{}{"error": err.Error(), "type": eventType})
		return
	}
	h.Send(sessionID, data)
}

func (h *Hub) handleInbound(sessionID string, message []byte) {
	if h.inbound != nil {
		h.inbound(sessionID, message)
	}
}

func (h *Hub) subscribeToRedis() {
	// All instances subscribe to "cluster_events". When a message arrives,
	// an instance delivers it only if it holds connections for the session.
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "cluster_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			TargetSessionID string          `json:"target_session_id"`
			Message         json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		h.mu.RLock()
		clients, ok := h.clients[payload.TargetSessionID]
		h.mu.RUnlock()

		if ok {
			for _, client := range clients {
				select {
				case client.Send <- payload.Message:
				default:
					close(client.Send)
					h.unregister <- client
				}
			}
		}
	}
}
