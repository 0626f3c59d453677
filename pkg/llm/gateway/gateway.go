// Package gateway resolves a working model connection from an ordered list
// of credentials. Fallback happens once, at startup; a resolved gateway
// never switches credentials on a per-call basis.
package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mediguideco/mediguide/pkg/llm"
	"github.com/mediguideco/mediguide/pkg/llm/provider/openai"
	"github.com/mediguideco/mediguide/pkg/logger"
)

// Config holds the resolution settings.
type Config struct {
	// BaseURL is the chat completions API root.
	BaseURL string

	// Generation holds the model and decoding parameters.
	Generation llm.GenerationConfig

	// Credentials is the ordered list of API keys to try.
	Credentials []string

	// NewCompleter builds a completer for one credential. Defaults to the
	// OpenAI-compatible client.
	NewCompleter func(apiKey string) (llm.Completer, error)

	// Logger is the provided logger
	Logger *slog.Logger
}

// Gateway is a resolved model connection.
type Gateway struct {
	completer llm.Completer
	logger    *slog.Logger
}

// Resolve tries each credential in order, verifying it with a live ping, and
// returns a gateway bound to the first one that works. When every credential
// fails it returns llm.ErrModelUnavailable; neither the error nor the logs
// carry key material, only credential positions.
func Resolve(ctx context.Context, cfg Config) (*Gateway, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if len(cfg.Credentials) == 0 {
		return nil, fmt.Errorf("%w: no credentials configured", llm.ErrModelUnavailable)
	}

	newCompleter := cfg.NewCompleter
	if newCompleter == nil {
		newCompleter = func(apiKey string) (llm.Completer, error) {
			return openai.NewClient(openai.Config{
				BaseURL:    cfg.BaseURL,
				APIKey:     apiKey,
				Generation: cfg.Generation,
			})
		}
	}

	for i, key := range cfg.Credentials {
		completer, err := newCompleter(key)
		if err != nil {
			cfg.Logger.Warn("credential rejected", "position", i+1, "error", err)
			continue
		}

		if err := completer.Ping(ctx); err != nil {
			cfg.Logger.Warn("credential failed ping", "position", i+1, "error", err)
			completer.Close()
			continue
		}

		cfg.Logger.Info("model connection established",
			"position", i+1,
			"model", completer.Model(),
		)
		return &Gateway{completer: completer, logger: cfg.Logger}, nil
	}

	return nil, fmt.Errorf("%w: all %d credentials failed", llm.ErrModelUnavailable, len(cfg.Credentials))
}

// Complete generates a completion over the resolved connection. Failures are
// returned as-is; the gateway never retries with another credential.
func (g *Gateway) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return g.completer.Complete(ctx, messages)
}

// Model returns the resolved connection's model identifier.
func (g *Gateway) Model() string {
	return g.completer.Model()
}

// Ping re-verifies the resolved connection.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.completer.Ping(ctx)
}

// Close releases the underlying connection.
func (g *Gateway) Close() error {
	return g.completer.Close()
}

var _ llm.Completer = (*Gateway)(nil)
