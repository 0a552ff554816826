// Package store provides persistence for conversations, messages, and
// agents.
//
// # Architecture
//
// Two implementations sit behind the Store interface:
//
//   - MemoryStore: mutex-guarded in-memory maps, the default backend
//   - SQLiteStore: modernc.org/sqlite with automatic schema creation
//
// Both are constructed once at process start and handed to consumers as a
// Store value; there is no ambient global state.
//
// # Data Models
//
//   - Conversation: id, title, created/updated timestamps. UpdatedAt
//     advances on every message inserted into the conversation.
//   - Message: immutable once created, owned by exactly one conversation,
//     with an opaque optional metadata map.
//   - Agent: named persona (reasoning, search, creative) with an active
//     flag. Independent of conversations.
//
// # Consistency Rules
//
// CreateMessage touches the parent conversation's UpdatedAt; the message
// insert and the touch are applied atomically (one write lock for
// MemoryStore, one transaction for SQLiteStore). DeleteConversation
// cascades to every owned message under the same atomicity rule.
//
// # Seeding
//
// Each new store starts with exactly three agents, one per type, all
// active. SQLiteStore only seeds when its agents table is empty, so a
// reopened database keeps its existing agents.
//
// # Error Handling
//
// Missing entities are reported with ErrNotFound, an expected condition
// rather than a failure. Deletes report existence as a boolean. All
// methods accept context.Context.
//
// # Identifiers
//
// IDs are UUIDv4 strings from a crypto-strength generator. The generator
// and clock are injectable fields, which tests use for determinism.
package store
