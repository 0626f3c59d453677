// Package llm defines the provider-agnostic types for generative model
// calls: chat messages, generation parameters, and the Completer interface
// the query engine talks to.
package llm

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// GenerationConfig holds the decoding parameters sent with every completion.
type GenerationConfig struct {
	// Model is the generative model identifier.
	Model string

	// Temperature controls sampling randomness, in [0,1].
	Temperature float64

	// MaxTokens caps the completion length.
	MaxTokens int
}

// Completer produces chat completions.
type Completer interface {
	// Complete generates an assistant reply to the given messages.
	Complete(ctx context.Context, messages []Message) (string, error)

	// Ping verifies the provider is reachable and the credential is valid
	// without running inference.
	Ping(ctx context.Context) error

	// Model returns the generative model identifier.
	Model() string

	// Close releases any resources held by the completer.
	Close() error
}
