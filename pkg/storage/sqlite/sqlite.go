// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/mediguideco/mediguide/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL REFERENCES users(username),
	title TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_username ON conversations(username);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
`

// Driver implements storage.Driver using SQLite.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a new SQLite-backed store. The dbPath can be a file path
// or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{db: db}, nil
}

// CreateUser stores a new user.
func (d *Driver) CreateUser(ctx context.Context, user storage.User) error {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		user.Username, user.PasswordHash, createdAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return storage.ErrExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by username.
func (d *Driver) GetUser(ctx context.Context, username string) (*storage.User, error) {
	var user storage.User
	err := d.db.QueryRowContext(ctx,
		`SELECT username, password_hash, created_at FROM users WHERE username = ?`,
		username,
	).Scan(&user.Username, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &user, nil
}

// CreateConversation starts a new conversation for the user.
func (d *Driver) CreateConversation(ctx context.Context, username, title string) (*storage.Conversation, error) {
	conv := storage.Conversation{
		ID:        uuid.NewString(),
		Username:  username,
		Title:     title,
		CreatedAt: time.Now(),
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO conversations (id, username, title, created_at) VALUES (?, ?, ?, ?)`,
		conv.ID, conv.Username, conv.Title, conv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting conversation: %w", err)
	}
	return &conv, nil
}

// AppendMessage adds a message to an existing conversation.
func (d *Driver) AppendMessage(ctx context.Context, conversationID string, message storage.Message) error {
	createdAt := message.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var exists int
	err := d.db.QueryRowContext(ctx,
		`SELECT 1 FROM conversations WHERE id = ?`, conversationID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking conversation: %w", err)
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		conversationID, message.Role, message.Content, createdAt,
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// ListConversations returns the user's conversations, newest first.
func (d *Driver) ListConversations(ctx context.Context, username string) ([]storage.Conversation, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, username, title, created_at FROM conversations
		 WHERE username = ? ORDER BY created_at DESC, id DESC`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []storage.Conversation
	for rows.Next() {
		var conv storage.Conversation
		if err := rows.Scan(&conv.ID, &conv.Username, &conv.Title, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// GetConversation retrieves one conversation and its messages in order.
func (d *Driver) GetConversation(ctx context.Context, username, conversationID string) (*storage.Conversation, []storage.Message, error) {
	var conv storage.Conversation
	err := d.db.QueryRowContext(ctx,
		`SELECT id, username, title, created_at FROM conversations
		 WHERE id = ? AND username = ?`,
		conversationID, username,
	).Scan(&conv.ID, &conv.Username, &conv.Title, &conv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("querying conversation: %w", err)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT conversation_id, role, content, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY id`,
		conversationID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []storage.Message
	for rows.Next() {
		var msg storage.Message
		if err := rows.Scan(&msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return &conv, msgs, rows.Err()
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ storage.Driver = (*Driver)(nil)
