// Package openai implements llm.Completer against OpenAI-compatible chat
// completion APIs. Groq exposes the same surface, so the gateway uses this
// client for both.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mediguideco/mediguide/pkg/llm"
)

const (
	// DefaultBaseURL targets the hosted Groq API.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is the generative model used when none is configured.
	DefaultModel = "llama-3.1-8b-instant"

	defaultTimeout = 120 * time.Second
)

// Config holds the connection and generation settings for a Client.
type Config struct {
	// BaseURL is the API root, without the trailing endpoint path.
	BaseURL string

	// APIKey is the bearer credential. Required.
	APIKey string

	// Generation holds the model and decoding parameters.
	Generation llm.GenerationConfig
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	generation llm.GenerationConfig
	httpClient *http.Client
}

// NewClient creates a chat completions client. The API key is required; the
// base URL and model fall back to the Groq defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = DefaultModel
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		generation: cfg.Generation,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message llm.Message `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete sends the messages to the chat completions endpoint and returns
// the assistant's reply. Failures are wrapped in llm.ErrCompletion; the
// error text never includes the credential.
func (c *Client) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.generation.Model,
		Messages:    messages,
		Temperature: c.generation.Temperature,
		MaxTokens:   c.generation.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %v", llm.ErrCompletion, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", llm.ErrCompletion, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: calling model: %v", llm.ErrCompletion, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", llm.ErrCompletion, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: status %d: unparseable response", llm.ErrCompletion, resp.StatusCode)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", llm.ErrCompletion, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", llm.ErrCompletion, resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: response contained no choices", llm.ErrCompletion)
	}

	return parsed.Choices[0].Message.Content, nil
}

// Ping verifies the credential against the models endpoint without running
// inference.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reaching model provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model provider returned status %d", resp.StatusCode)
	}

	return nil
}

// Model returns the configured generative model identifier.
func (c *Client) Model() string {
	return c.generation.Model
}

// Close is a no-op; the client holds no persistent connections.
func (c *Client) Close() error {
	return nil
}

var _ llm.Completer = (*Client)(nil)
