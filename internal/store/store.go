// ABOUTME: Store interface and data types for SAI.ai persistence
// ABOUTME: Defines Conversation, Message, Agent structs and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
// It signals an expected condition, not a failure: callers translate it
// to their own "absent" representation (e.g. HTTP 404).
var ErrNotFound = errors.New("not found")

// Agent type constants. Every agent is exactly one of these.
const (
	AgentTypeReasoning = "reasoning"
	AgentTypeSearch    = "search"
	AgentTypeCreative  = "creative"
)

// Message role constants.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is a chat conversation. UpdatedAt advances on every message
// inserted into it, so listing by UpdatedAt descending yields most recently
// active conversations first.
type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a single chat message owned by exactly one conversation.
// Messages are immutable after creation; they can only be deleted.
type Message struct {
	ID             string
	ConversationID string
	Role           string // "user" or "assistant"
	Content        string
	Metadata       map[string]any // opaque, nil when absent
	CreatedAt      time.Time
}

// Agent is a named assistant persona. Agents are independent of
// conversations and messages.
type Agent struct {
	ID          string
	Name        string
	Type        string // "reasoning", "search", "creative"
	Description string
	IsActive    bool
}

// InsertConversation is the pre-validated field set for creating a
// conversation.
type InsertConversation struct {
	Title string
}

// UpdateConversation is a partial update. Nil fields are left unchanged.
// UpdatedAt is refreshed even when every field is nil; CreateMessage relies
// on this to touch the parent conversation.
type UpdateConversation struct {
	Title *string
}

// InsertMessage is the pre-validated field set for creating a message.
type InsertMessage struct {
	ConversationID string
	Role           string
	Content        string
	Metadata       map[string]any
}

// InsertAgent is the pre-validated field set for creating an agent.
// IsActive defaults to true when nil.
type InsertAgent struct {
	Name        string
	Type        string
	Description string
	IsActive    *bool
}

// UpdateAgent is a partial update. Nil fields are left unchanged.
type UpdateAgent struct {
	Name        *string
	Type        *string
	Description *string
	IsActive    *bool
}

// Store defines the persistence contract for conversations, messages, and
// agents. Implementations must make CreateMessage's conversation touch and
// DeleteConversation's message cascade appear atomic to concurrent readers.
type Store interface {
	// Conversations
	ListConversations(ctx context.Context) ([]*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	CreateConversation(ctx context.Context, ins InsertConversation) (*Conversation, error)
	UpdateConversation(ctx context.Context, id string, upd UpdateConversation) (*Conversation, error)
	DeleteConversation(ctx context.Context, id string) (bool, error)

	// Messages
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)
	GetMessage(ctx context.Context, id string) (*Message, error)
	CreateMessage(ctx context.Context, ins InsertMessage) (*Message, error)
	DeleteMessage(ctx context.Context, id string) (bool, error)

	// Agents
	ListAgents(ctx context.Context) ([]*Agent, error)
	ListActiveAgents(ctx context.Context) ([]*Agent, error)
	GetAgent(ctx context.Context, id string) (*Agent, error)
	CreateAgent(ctx context.Context, ins InsertAgent) (*Agent, error)
	UpdateAgent(ctx context.Context, id string, upd UpdateAgent) (*Agent, error)

	// Close releases any resources held by the store
	Close() error
}

// defaultAgents returns the three agents seeded into every new store, one
// per type, all active.
func defaultAgents() []InsertAgent {
	return []InsertAgent{
		{
			Name:        "Reasoning Agent",
			Type:        AgentTypeReasoning,
			Description: "Works through problems step by step and explains its thinking.",
		},
		{
			Name:        "Search Agent",
			Type:        AgentTypeSearch,
			Description: "Looks up current information on the web and cites its sources.",
		},
		{
			Name:        "Creative Agent",
			Type:        AgentTypeCreative,
			Description: "Brainstorms ideas, writes drafts, and explores open-ended prompts.",
		},
	}
}
