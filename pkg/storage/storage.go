// Package storage persists users and their chat conversations.
package storage

import (
	"context"
	"time"
)

// User is a registered account. Only the bcrypt hash is ever stored.
type User struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Conversation is one chat thread owned by a user.
type Conversation struct {
	ID        string
	Username  string
	Title     string
	CreatedAt time.Time
}

// Message is one turn within a conversation.
type Message struct {
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// Driver defines the interface for persisting users and conversations in a
// storage backend.
type Driver interface {
	// CreateUser stores a new user. Returns ErrExists when the username is
	// taken.
	CreateUser(ctx context.Context, user User) error

	// GetUser retrieves a user by username. Returns ErrNotFound when absent.
	GetUser(ctx context.Context, username string) (*User, error)

	// CreateConversation starts a new conversation for the user and returns
	// it with its assigned ID.
	CreateConversation(ctx context.Context, username, title string) (*Conversation, error)

	// AppendMessage adds a message to an existing conversation. Returns
	// ErrNotFound when the conversation does not exist.
	AppendMessage(ctx context.Context, conversationID string, message Message) error

	// ListConversations returns the user's conversations, newest first.
	ListConversations(ctx context.Context, username string) ([]Conversation, error)

	// GetConversation retrieves one conversation and its messages in order.
	// Returns ErrNotFound when the conversation does not exist or is owned
	// by a different user.
	GetConversation(ctx context.Context, username, conversationID string) (*Conversation, []Message, error)

	// Close closes the store and releases any resources.
	Close() error
}
