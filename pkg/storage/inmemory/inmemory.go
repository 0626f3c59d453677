// Package inmemory provides a map-backed storage driver for tests and for
// running the service without persistence.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediguideco/mediguide/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu guards all three maps.
	mu sync.RWMutex

	users         map[string]storage.User
	conversations map[string]storage.Conversation
	messages      map[string][]storage.Message
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		users:         make(map[string]storage.User),
		conversations: make(map[string]storage.Conversation),
		messages:      make(map[string][]storage.Message),
	}
}

// CreateUser stores a new user.
func (d *Driver) CreateUser(_ context.Context, user storage.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[user.Username]; ok {
		return storage.ErrExists
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	d.users[user.Username] = user
	return nil
}

// GetUser retrieves a user by username.
func (d *Driver) GetUser(_ context.Context, username string) (*storage.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &user, nil
}

// CreateConversation starts a new conversation for the user.
func (d *Driver) CreateConversation(_ context.Context, username, title string) (*storage.Conversation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	conv := storage.Conversation{
		ID:        uuid.NewString(),
		Username:  username,
		Title:     title,
		CreatedAt: time.Now(),
	}
	d.conversations[conv.ID] = conv
	return &conv, nil
}

// AppendMessage adds a message to an existing conversation.
func (d *Driver) AppendMessage(_ context.Context, conversationID string, message storage.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.conversations[conversationID]; !ok {
		return storage.ErrNotFound
	}

	message.ConversationID = conversationID
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	d.messages[conversationID] = append(d.messages[conversationID], message)
	return nil
}

// ListConversations returns the user's conversations, newest first.
func (d *Driver) ListConversations(_ context.Context, username string) ([]storage.Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var convs []storage.Conversation
	for _, conv := range d.conversations {
		if conv.Username == username {
			convs = append(convs, conv)
		}
	}

	sort.Slice(convs, func(i, j int) bool {
		if convs[i].CreatedAt.Equal(convs[j].CreatedAt) {
			return convs[i].ID > convs[j].ID
		}
		return convs[i].CreatedAt.After(convs[j].CreatedAt)
	})
	return convs, nil
}

// GetConversation retrieves one conversation and its messages in order.
func (d *Driver) GetConversation(_ context.Context, username, conversationID string) (*storage.Conversation, []storage.Message, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	conv, ok := d.conversations[conversationID]
	if !ok || conv.Username != username {
		return nil, nil, storage.ErrNotFound
	}

	msgs := make([]storage.Message, len(d.messages[conversationID]))
	copy(msgs, d.messages[conversationID])
	return &conv, msgs, nil
}

// Close is a no-op for the in-memory store.
func (d *Driver) Close() error {
	return nil
}

var _ storage.Driver = (*Driver)(nil)
