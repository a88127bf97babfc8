// Package live pushes newly persisted turns to WebSocket subscribers of a chat.
package live

import (
	"log/slog"
	"sync"

	"github.com/ashureev/replycraft/internal/domain"
)

// subscriberBuffer is how many events a slow subscriber may lag behind
// before further events are dropped for it.
const subscriberBuffer = 16

// Event is the message sent to subscribers.
type Event struct {
	Type string       `json:"type"`
	Turn *domain.Turn `json:"turn,omitempty"`
}

// Subscription receives events for one chat until cancelled or the chat is closed.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	chatID string
	userID string
}

// Hub tracks subscribers per chat.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[*Subscription]struct{}
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		active: make(map[string]map[*Subscription]struct{}),
		logger: logger.With("component", "live"),
	}
}

// Subscribe registers a subscriber for chatID. The returned function removes
// it and must be called once the subscriber is done.
func (h *Hub) Subscribe(chatID, userID string) (*Subscription, func()) {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{C: ch, ch: ch, chatID: chatID, userID: userID}

	h.mu.Lock()
	if _, ok := h.active[chatID]; !ok {
		h.active[chatID] = make(map[*Subscription]struct{})
	}
	h.active[chatID][sub] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("live subscriber registered", "chat_id", chatID, "user_id", userID)
	return sub, func() { h.unsubscribe(sub) }
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.active[sub.chatID]
	if !ok {
		return
	}
	if _, exists := subs[sub]; !exists {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(h.active, sub.chatID)
	}
	h.logger.Info("live subscriber unregistered", "chat_id", sub.chatID, "user_id", sub.userID)
}

// Publish delivers turn to every subscriber of chatID without blocking.
func (h *Hub) Publish(chatID string, turn *domain.Turn) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ev := Event{Type: "turn", Turn: turn}
	for sub := range h.active[chatID] {
		select {
		case sub.ch <- ev:
		default:
			h.logger.Warn("live subscriber lagging, event dropped", "chat_id", chatID, "user_id", sub.userID)
		}
	}
}

// CloseChat ends every subscription of chatID.
func (h *Hub) CloseChat(chatID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.active[chatID]
	if !ok {
		return
	}
	for sub := range subs {
		close(sub.ch)
	}
	delete(h.active, chatID)
	h.logger.Info("live chat closed", "chat_id", chatID, "subscribers", len(subs))
}

// Count returns the number of subscribers of chatID.
func (h *Hub) Count(chatID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[chatID])
}
