// Package push fans portal events out to WebSocket clients by topic.
package push

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

const clientBuffer = 256

// ClientMessage is an inbound control message from a push client
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// Ack answers a subscribe or unsubscribe
type Ack struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics"`
}

// Client is one connected push-channel consumer
type Client struct {
	ID     string
	Send   chan []byte
	topics map[string]struct{}
}

// NewClient creates an unregistered client
func NewClient() *Client {
	return &Client{
		ID:     uuid.New().String(),
		Send:   make(chan []byte, clientBuffer),
		topics: make(map[string]struct{}),
	}
}

// ValidTopic reports whether topic is one clients may subscribe to
func ValidTopic(topic string) bool {
	switch {
	case topic == entities.TopicStaff:
		return true
	case strings.HasPrefix(topic, entities.TopicPatientPrefix):
		return len(topic) > len(entities.TopicPatientPrefix)
	case strings.HasPrefix(topic, entities.TopicDoctorPrefix):
		return len(topic) > len(entities.TopicDoctorPrefix)
	}
	return false
}

// Hub tracks clients and their topic subscriptions
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	all     map[*Client]struct{}
}

// NewHub creates a new Hub ready to manage push clients
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.all[client] = struct{}{}
}

// Unregister removes a client from every topic and closes its Send channel
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for topic := range client.topics {
		h.removeLocked(topic, client)
	}
	delete(h.all, client)
	close(client.Send)
}

// TopicsOf returns the client's current subscriptions
func (h *Hub) TopicsOf(client *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(client.topics))
	for t := range client.topics {
		out = append(out, t)
	}
	return out
}

// Subscribe adds valid topics to a registered client and returns the ones accepted
func (h *Hub) Subscribe(client *Client, topics []string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return nil
	}

	accepted := make([]string, 0, len(topics))
	for _, topic := range topics {
		if !ValidTopic(topic) {
			log.Debug().Str("client_id", client.ID).Str("topic", topic).Msg("rejecting push topic")
			continue
		}
		if h.clients[topic] == nil {
			h.clients[topic] = make(map[*Client]struct{})
		}
		h.clients[topic][client] = struct{}{}
		client.topics[topic] = struct{}{}
		accepted = append(accepted, topic)
	}
	return accepted
}

// Unsubscribe removes topics from a registered client
func (h *Hub) Unsubscribe(client *Client, topics []string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := make([]string, 0, len(topics))
	for _, topic := range topics {
		if _, ok := client.topics[topic]; !ok {
			continue
		}
		h.removeLocked(topic, client)
		delete(client.topics, topic)
		removed = append(removed, topic)
	}
	return removed
}

func (h *Hub) removeLocked(topic string, client *Client) {
	if subscribers, ok := h.clients[topic]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.clients, topic)
		}
	}
}

// ProcessMessage handles an inbound ClientMessage and returns the ack to send
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) *Ack {
	switch msg.Action {
	case "subscribe":
		return &Ack{Type: "subscribed", Topics: h.Subscribe(client, msg.Topics)}
	case "unsubscribe":
		return &Ack{Type: "unsubscribed", Topics: h.Unsubscribe(client, msg.Topics)}
	}
	return nil
}

// Broadcast sends event once to every client subscribed to any of topics.
// Clients whose buffer is full miss the event.
func (h *Hub) Broadcast(topics []string, event *entities.PortalEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("failed to marshal push event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := make(map[*Client]struct{})
	for _, topic := range topics {
		for client := range h.clients[topic] {
			if _, done := delivered[client]; done {
				continue
			}
			delivered[client] = struct{}{}
			select {
			case client.Send <- data:
			default:
				log.Warn().Str("client_id", client.ID).Str("event_id", event.ID).Msg("push client buffer full, dropping event")
			}
		}
	}
}

// ClientCount returns the total number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// TopicCount returns the number of clients subscribed to a topic
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}
