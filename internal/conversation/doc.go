// Package conversation provides the coordination layer between the store
// and live clients.
//
// # Service
//
// Service applies the record-first rule: every mutation is persisted
// before anything is broadcast, so subscribers only ever see state that
// exists in the store.
//
//	svc := conversation.New(st, broadcaster, logger)
//	msg, err := svc.PostMessage(ctx, ins)
//
// # Event Broadcasting
//
// EventBroadcaster is in-memory pub/sub keyed by conversation ID:
//
//	ch, subID := broadcaster.Subscribe(ctx, conversationID)
//
// Events are message_created, conversation_updated, and
// conversation_deleted. Publishing never blocks; slow subscribers drop
// events rather than stalling writers. Subscriptions clean themselves up
// when their context is cancelled.
package conversation
