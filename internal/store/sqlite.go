// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides conversation/message/agent persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// timeLayout is RFC3339 with zero-padded nanoseconds. The fixed width keeps
// lexicographic order equal to chronological order, so ORDER BY on the text
// column is correct.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	newID func() string
	now   func() time.Time
}

// NewSQLiteStore creates a SQLite store at the given path. The schema is
// created if it doesn't exist, and the three default agents are seeded the
// first time the agents table is empty. Parent directories are created if
// needed.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
		newID:  func() string { return uuid.New().String() },
		now:    time.Now,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.seedAgents(); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding agents: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_updated
			ON conversations(updated_at);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT,
			created_at TEXT NOT NULL,

			CHECK (role IN ('user', 'assistant'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON messages(conversation_id, created_at);

		CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			description TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,

			CHECK (type IN ('reasoning', 'search', 'creative'))
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	return nil
}

// seedAgents inserts the default agents when the agents table is empty.
// A reopened database keeps the agents it already has.
func (s *SQLiteStore) seedAgents() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM agents`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, ins := range defaultAgents() {
		_, err := s.db.Exec(
			`INSERT INTO agents (id, name, type, description, is_active) VALUES (?, ?, ?, ?, 1)`,
			s.newID(), ins.Name, ins.Type, ins.Description,
		)
		if err != nil {
			return err
		}
	}

	s.logger.Debug("seeded default agents", "count", len(defaultAgents()))
	return nil
}

// ListConversations returns all conversations ordered by UpdatedAt
// descending.
func (s *SQLiteStore) ListConversations(ctx context.Context) ([]*Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	result := make([]*Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	return result, rows.Err()
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?`, id)

	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateConversation creates a conversation with a fresh ID.
func (s *SQLiteStore) CreateConversation(ctx context.Context, ins InsertConversation) (*Conversation, error) {
	now := s.now().UTC()
	c := &Conversation{
		ID:        s.newID(),
		Title:     ins.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Title, formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("inserting conversation: %w", err)
	}

	return c, nil
}

// UpdateConversation merges the given fields and refreshes UpdatedAt.
func (s *SQLiteStore) UpdateConversation(ctx context.Context, id string, upd UpdateConversation) (*Conversation, error) {
	now := s.now().UTC()

	var res sql.Result
	var err error
	if upd.Title != nil {
		res, err = s.db.ExecContext(ctx,
			`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`,
			*upd.Title, formatTime(now), id)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE conversations SET updated_at = ? WHERE id = ?`,
			formatTime(now), id)
	}
	if err != nil {
		return nil, fmt.Errorf("updating conversation: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return s.GetConversation(ctx, id)
}

// DeleteConversation removes the conversation and cascades to its messages
// inside one transaction.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return false, fmt.Errorf("deleting messages: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing delete: %w", err)
	}

	return affected > 0, nil
}

// ListMessages returns the messages of a conversation ordered by CreatedAt
// ascending.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, metadata, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY created_at ASC`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	result := make([]*Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, msg)
	}

	return result, rows.Err()
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, role, content, metadata, created_at
		 FROM messages WHERE id = ?`, id)

	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// CreateMessage stores a message and touches the parent conversation's
// UpdatedAt inside one transaction. The touch updates zero rows, without
// error, when the conversation does not exist.
func (s *SQLiteStore) CreateMessage(ctx context.Context, ins InsertMessage) (*Message, error) {
	now := s.now().UTC()
	msg := &Message{
		ID:             s.newID(),
		ConversationID: ins.ConversationID,
		Role:           ins.Role,
		Content:        ins.Content,
		Metadata:       ins.Metadata,
		CreatedAt:      now,
	}

	var metadata any
	if msg.Metadata != nil {
		data, err := json.Marshal(msg.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encoding metadata: %w", err)
		}
		metadata = string(data)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, metadata, formatTime(msg.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		formatTime(s.now().UTC()), msg.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("touching conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}

	return msg, nil
}

// DeleteMessage removes a message by ID. Returns whether it existed.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListAgents returns all agents in insertion order.
func (s *SQLiteStore) ListAgents(ctx context.Context) ([]*Agent, error) {
	return s.queryAgents(ctx,
		`SELECT id, name, type, description, is_active FROM agents ORDER BY rowid`)
}

// ListActiveAgents returns agents with is_active set, in insertion order.
func (s *SQLiteStore) ListActiveAgents(ctx context.Context) ([]*Agent, error) {
	return s.queryAgents(ctx,
		`SELECT id, name, type, description, is_active FROM agents WHERE is_active = 1 ORDER BY rowid`)
}

func (s *SQLiteStore) queryAgents(ctx context.Context, query string) ([]*Agent, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying agents: %w", err)
	}
	defer rows.Close()

	result := make([]*Agent, 0)
	for rows.Next() {
		a := &Agent{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.Description, &a.IsActive); err != nil {
			return nil, err
		}
		result = append(result, a)
	}

	return result, rows.Err()
}

// GetAgent retrieves an agent by ID.
func (s *SQLiteStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	a := &Agent{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, type, description, is_active FROM agents WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Type, &a.Description, &a.IsActive)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAgent creates an agent. IsActive defaults to true when nil.
func (s *SQLiteStore) CreateAgent(ctx context.Context, ins InsertAgent) (*Agent, error) {
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

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agents (id, name, type, description, is_active) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Type, a.Description, a.IsActive)
	if err != nil {
		return nil, fmt.Errorf("inserting agent: %w", err)
	}

	return a, nil
}

// UpdateAgent applies a shallow merge of the given fields.
func (s *SQLiteStore) UpdateAgent(ctx context.Context, id string, upd UpdateAgent) (*Agent, error) {
	current, err := s.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		current.Name = *upd.Name
	}
	if upd.Type != nil {
		current.Type = *upd.Type
	}
	if upd.Description != nil {
		current.Description = *upd.Description
	}
	if upd.IsActive != nil {
		current.IsActive = *upd.IsActive
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE agents SET name = ?, type = ?, description = ?, is_active = ? WHERE id = ?`,
		current.Name, current.Type, current.Description, current.IsActive, id)
	if err != nil {
		return nil, fmt.Errorf("updating agent: %w", err)
	}

	return current, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*Conversation, error) {
	c := &Conversation{}
	var createdAt, updatedAt string
	if err := row.Scan(&c.ID, &c.Title, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	c.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	c.UpdatedAt, err = time.Parse(timeLayout, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return c, nil
}

func scanMessage(row scanner) (*Message, error) {
	msg := &Message{}
	var metadata sql.NullString
	var createdAt string
	if err := row.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &metadata, &createdAt); err != nil {
		return nil, err
	}

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &msg.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
	}

	var err error
	msg.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return msg, nil
}

// Verify SQLiteStore implements Store at compile time.
var _ Store = (*SQLiteStore)(nil)
