// ABOUTME: In-memory Store implementation backed by mutex-guarded maps
// ABOUTME: One write lock covers the message insert + conversation touch couple

package store

import (
	"context"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation. A single RWMutex guards
// all three entity maps: CreateMessage touches the parent conversation's
// UpdatedAt, and that couple must never be observed half-applied.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	messages      map[string][]*Message // keyed by conversation ID, insertion order
	messageOwner  map[string]string     // message ID -> conversation ID
	agents        map[string]*Agent
	agentOrder    []string // agent IDs in insertion order
	logger        *slog.Logger

	// Injectable for deterministic tests.
	newID func() string
	now   func() time.Time
}

// NewMemoryStore creates a MemoryStore seeded with the three default
// agents. Pass nil logger for slog.Default().
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &MemoryStore{
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]*Message),
		messageOwner:  make(map[string]string),
		agents:        make(map[string]*Agent),
		logger:        logger.With("component", "store"),
		newID:         func() string { return uuid.New().String() },
		now:           time.Now,
	}

	for _, ins := range defaultAgents() {
		s.insertAgentLocked(ins)
	}
	s.logger.Debug("seeded default agents", "count", len(s.agents))

	return s
}

// ListConversations returns all conversations ordered by UpdatedAt
// descending (most recently active first).
func (s *MemoryStore) ListConversations(ctx context.Context) ([]*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		conversationCopy := *c
		result = append(result, &conversationCopy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	return result, nil
}

// GetConversation retrieves a conversation by ID.
func (s *MemoryStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}

	result := *c
	return &result, nil
}

// CreateConversation creates a conversation with a fresh ID and
// CreatedAt == UpdatedAt == now.
func (s *MemoryStore) CreateConversation(ctx context.Context, ins InsertConversation) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c := &Conversation{
		ID:        s.newID(),
		Title:     ins.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[c.ID] = c

	result := *c
	return &result, nil
}

// UpdateConversation merges the given fields and refreshes UpdatedAt,
// whether or not any field changed. Returns ErrNotFound for unknown IDs.
func (s *MemoryStore) UpdateConversation(ctx context.Context, id string, upd UpdateConversation) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}

	if upd.Title != nil {
		c.Title = *upd.Title
	}
	c.UpdatedAt = s.now()

	result := *c
	return &result, nil
}

// DeleteConversation removes the conversation and every message it owns.
// The cascade happens under one write lock, so no reader observes the
// conversation gone while its messages remain. Returns whether the
// conversation existed.
func (s *MemoryStore) DeleteConversation(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return false, nil
	}

	for _, msg := range s.messages[id] {
		delete(s.messageOwner, msg.ID)
	}
	delete(s.messages, id)
	delete(s.conversations, id)

	return true, nil
}

// ListMessages returns the messages of a conversation ordered by CreatedAt
// ascending. An unknown conversation yields an empty slice, not an error.
func (s *MemoryStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversationID]
	result := make([]*Message, len(msgs))
	for i, msg := range msgs {
		msgCopy := *msg
		result[i] = &msgCopy
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// GetMessage retrieves a message by ID.
func (s *MemoryStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversationID, ok := s.messageOwner[id]
	if !ok {
		return nil, ErrNotFound
	}
	for _, msg := range s.messages[conversationID] {
		if msg.ID == id {
			result := *msg
			return &result, nil
		}
	}
	return nil, ErrNotFound
}

// CreateMessage stores a message and touches the parent conversation's
// UpdatedAt. The touch is a no-op, not an error, when the conversation
// does not exist. Both writes happen under the same lock.
func (s *MemoryStore) CreateMessage(ctx context.Context, ins InsertMessage) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &Message{
		ID:             s.newID(),
		ConversationID: ins.ConversationID,
		Role:           ins.Role,
		Content:        ins.Content,
		Metadata:       maps.Clone(ins.Metadata),
		CreatedAt:      s.now(),
	}
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], msg)
	s.messageOwner[msg.ID] = msg.ConversationID

	s.touchConversationLocked(msg.ConversationID)

	result := *msg
	return &result, nil
}

// touchConversationLocked refreshes a conversation's UpdatedAt. Callers
// must hold the write lock. Unknown conversations are ignored.
func (s *MemoryStore) touchConversationLocked(id string) {
	if c, ok := s.conversations[id]; ok {
		c.UpdatedAt = s.now()
	}
}

// DeleteMessage removes a message by ID. Returns whether it existed.
func (s *MemoryStore) DeleteMessage(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversationID, ok := s.messageOwner[id]
	if !ok {
		return false, nil
	}

	msgs := s.messages[conversationID]
	for i, msg := range msgs {
		if msg.ID == id {
			s.messages[conversationID] = append(msgs[:i], msgs[i+1:]...)
			break
		}
	}
	delete(s.messageOwner, id)

	return true, nil
}

// ListAgents returns all agents in insertion order.
func (s *MemoryStore) ListAgents(ctx context.Context) ([]*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Agent, 0, len(s.agentOrder))
	for _, id := range s.agentOrder {
		agentCopy := *s.agents[id]
		result = append(result, &agentCopy)
	}

	return result, nil
}

// ListActiveAgents returns agents with IsActive == true, in insertion
// order.
func (s *MemoryStore) ListActiveAgents(ctx context.Context) ([]*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Agent
	for _, id := range s.agentOrder {
		if a := s.agents[id]; a.IsActive {
			agentCopy := *a
			result = append(result, &agentCopy)
		}
	}

	return result, nil
}

// GetAgent retrieves an agent by ID.
func (s *MemoryStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agents[id]
	if !ok {
		return nil, ErrNotFound
	}

	result := *a
	return &result, nil
}

// CreateAgent creates an agent. IsActive defaults to true when the insert
// leaves it nil.
func (s *MemoryStore) CreateAgent(ctx context.Context, ins InsertAgent) (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.insertAgentLocked(ins)
	result := *a
	return &result, nil
}

// insertAgentLocked creates and indexes an agent. Callers must hold the
// write lock (or be the constructor, which has exclusive access).
func (s *MemoryStore) insertAgentLocked(ins InsertAgent) *Agent {
	active := true
	if ins.IsActive != nil {
		active = *ins.IsActive
	}
	a := &Agent{
		ID:          s.newID(),
		Name:        ins.Name,
		Type:        ins.Type,
		Description: ins.Description,
		IsActive:    active,
	}
	s.agents[a.ID] = a
	s.agentOrder = append(s.agentOrder, a.ID)
	return a
}

// UpdateAgent applies a shallow merge of the given fields. Agents have no
// timestamp bookkeeping. Returns ErrNotFound for unknown IDs.
func (s *MemoryStore) UpdateAgent(ctx context.Context, id string, upd UpdateAgent) (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.agents[id]
	if !ok {
		return nil, ErrNotFound
	}

	if upd.Name != nil {
		a.Name = *upd.Name
	}
	if upd.Type != nil {
		a.Type = *upd.Type
	}
	if upd.Description != nil {
		a.Description = *upd.Description
	}
	if upd.IsActive != nil {
		a.IsActive = *upd.IsActive
	}

	result := *a
	return &result, nil
}

// Close is a no-op for MemoryStore.
func (s *MemoryStore) Close() error {
	return nil
}

// Verify MemoryStore implements Store at compile time.
var _ Store = (*MemoryStore)(nil)
