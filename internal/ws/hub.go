package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/frameloop/frameloop/internal/model"
)

// Hub maintains the set of connected gallery subscribers and pushes an
// event to all of them whenever an artifact is published. Subscribers
// are anonymous and read-only.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	log.Printf("[hub] subscriber connected (total: %d)", h.ClientCount())
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	log.Printf("[hub] subscriber disconnected (total: %d)", h.ClientCount())
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ArtifactPublished broadcasts a publication event to all subscribers.
// Slow subscribers with a full send buffer are skipped, not waited on.
func (h *Hub) ArtifactPublished(art model.Artifact) {
	env := model.Envelope{
		Type:    model.MsgTypeArtifactPublished,
		Payload: art,
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("[hub] marshal event error: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Printf("[hub] send buffer full for a subscriber, dropping")
		}
	}
	log.Printf("[hub] broadcast ARTIFACT_PUBLISHED key=%s to %d subscribers", art.Key, len(h.clients))
}
