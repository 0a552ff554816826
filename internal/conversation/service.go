// ABOUTME: Service is the coordination layer between storage and live subscribers
// ABOUTME: Persists first, then broadcasts - the store is the source of truth

package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Architdevpro/SAI.ai/internal/store"
)

// Service coordinates conversation mutations: every write goes to the
// store first, and only persisted state is broadcast to subscribers.
type Service struct {
	store       store.Store
	broadcaster *EventBroadcaster
	logger      *slog.Logger
}

// New creates a conversation service. Pass nil logger for slog.Default().
func New(st store.Store, broadcaster *EventBroadcaster, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:       st,
		broadcaster: broadcaster,
		logger:      logger.With("component", "conversation"),
	}
}

// Broadcaster exposes the underlying broadcaster for subscription
// handlers.
func (s *Service) Broadcaster() *EventBroadcaster {
	return s.broadcaster
}

// PostMessage persists a message and publishes it to subscribers of its
// conversation. The store refreshes the parent conversation's UpdatedAt as
// part of the same write.
func (s *Service) PostMessage(ctx context.Context, ins store.InsertMessage) (*store.Message, error) {
	msg, err := s.store.CreateMessage(ctx, ins)
	if err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	s.logger.Debug("message recorded",
		"conversation_id", msg.ConversationID,
		"message_id", msg.ID,
		"role", msg.Role)

	s.broadcaster.Publish(&Event{
		Type:           EventMessageCreated,
		ConversationID: msg.ConversationID,
		Message:        msg,
	})

	return msg, nil
}

// RenameConversation updates a conversation's title and notifies
// subscribers. Returns store.ErrNotFound for unknown IDs.
func (s *Service) RenameConversation(ctx context.Context, id string, upd store.UpdateConversation) (*store.Conversation, error) {
	c, err := s.store.UpdateConversation(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	s.broadcaster.Publish(&Event{
		Type:           EventConversationUpdated,
		ConversationID: c.ID,
		Conversation:   c,
	})

	return c, nil
}

// RemoveConversation deletes a conversation with its messages and
// notifies subscribers. Returns whether the conversation existed.
func (s *Service) RemoveConversation(ctx context.Context, id string) (bool, error) {
	existed, err := s.store.DeleteConversation(ctx, id)
	if err != nil {
		return false, fmt.Errorf("deleting conversation: %w", err)
	}
	if !existed {
		return false, nil
	}

	s.logger.Debug("conversation deleted", "conversation_id", id)

	s.broadcaster.Publish(&Event{
		Type:           EventConversationDeleted,
		ConversationID: id,
	})

	return true, nil
}
