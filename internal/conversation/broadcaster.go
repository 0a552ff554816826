// ABOUTME: In-memory fan-out event broadcaster for live conversation updates
// ABOUTME: Publishes conversation events to all subscribers of a conversation ID

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Architdevpro/SAI.ai/internal/store"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// Event types published by the Service.
const (
	EventMessageCreated      = "message_created"
	EventConversationUpdated = "conversation_updated"
	EventConversationDeleted = "conversation_deleted"
)

// Event is a live update on a conversation.
type Event struct {
	Type           string              `json:"type"`
	ConversationID string              `json:"conversation_id"`
	Message        *store.Message      `json:"message,omitempty"`
	Conversation   *store.Conversation `json:"conversation,omitempty"`
}

// EventBroadcaster provides in-memory pub/sub for conversation events.
// Subscribers register for a conversation ID and receive events as they
// are persisted, enabling live clients without polling.
type EventBroadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan *Event // conversationID -> subID -> ch
	logger      *slog.Logger
}

// NewEventBroadcaster creates a broadcaster. Pass nil logger for default.
func NewEventBroadcaster(logger *slog.Logger) *EventBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBroadcaster{
		subscribers: make(map[string]map[string]chan *Event),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber for events on the given conversation.
// Returns a channel that receives events and a subscription ID for later
// unsubscription. The subscription is automatically cleaned up when ctx
// is cancelled.
func (b *EventBroadcaster) Subscribe(ctx context.Context, conversationID string) (<-chan *Event, string) {
	subID := uuid.New().String()
	ch := make(chan *Event, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[conversationID]; !ok {
		b.subscribers[conversationID] = make(map[string]chan *Event)
	}
	b.subscribers[conversationID][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added",
		"conversation_id", conversationID,
		"sub_id", subID)

	// Auto-cleanup on context cancellation
	go func() {
		<-ctx.Done()
		b.Unsubscribe(conversationID, subID)
	}()

	return ch, subID
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call
// more than once.
func (b *EventBroadcaster) Unsubscribe(conversationID, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[conversationID]
	if !ok {
		return
	}
	ch, ok := subs[subID]
	if !ok {
		return
	}

	delete(subs, subID)
	if len(subs) == 0 {
		delete(b.subscribers, conversationID)
	}
	close(ch)

	b.logger.Debug("subscriber removed",
		"conversation_id", conversationID,
		"sub_id", subID)
}

// Publish sends an event to all subscribers of the event's conversation.
// Non-blocking: events are dropped for subscribers whose channels are
// full. The sends happen under the read lock; they cannot block, and the
// lock keeps Unsubscribe from closing a channel mid-send.
func (b *EventBroadcaster) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[event.ConversationID] {
		select {
		case ch <- event:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				"conversation_id", event.ConversationID,
				"type", event.Type)
		}
	}
}

// SubscriberCount returns the number of subscribers for a conversation.
func (b *EventBroadcaster) SubscriberCount(conversationID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[conversationID])
}
