package notify

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message types pushed to event subscribers.
const (
	TypePhaseChanged   = "PHASE_CHANGED"
	TypeMatchesCreated = "MATCHES_CREATED"
	TypeMatchFinished  = "MATCH_FINISHED"
	TypeMatchRevealed  = "MATCH_REVEALED"
	TypeStandings      = "STANDINGS_UPDATED"
)

type Message struct {
	Type    string      `json:"type"`
	EventID string      `json:"event_id"`
	Payload interface{} `json:"payload,omitempty"`
}

// Hub fans event notifications out to websocket subscribers grouped by
// event. Delivery is best effort: slow or gone clients are skipped, a failed
// notification never blocks or reverts the operation that produced it.
type Hub struct {
	logger *slog.Logger

	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()
			h.logger.Debug("subscriber joined", slog.String("event_id", client.room))

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if clients[client] {
					client.close()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug("subscriber left", slog.String("event_id", client.room))
		}
	}
}

// Publish sends a message to every subscriber of the event. Fire-and-forget.
func (h *Hub) Publish(eventID, msgType string, payload interface{}) {
	body, err := json.Marshal(Message{Type: msgType, EventID: eventID, Payload: payload})
	if err != nil {
		h.logger.Error("failed to marshal notification", slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[eventID] {
		client.mu.Lock()
		if !client.closed {
			select {
			case client.send <- body:
			default:
				// Slow consumer, drop the message.
			}
		}
		client.mu.Unlock()
	}
}
