// Package rag implements the grounded query engine: embed the question,
// retrieve the closest indexed chunks, and have the generative model answer
// from that context.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mediguideco/mediguide/pkg/embeddings"
	"github.com/mediguideco/mediguide/pkg/llm"
	"github.com/mediguideco/mediguide/pkg/logger"
	"github.com/mediguideco/mediguide/pkg/vector"
)

// DefaultTopK is the number of chunks retrieved per question when the
// configuration does not say otherwise.
const DefaultTopK = 3

// ErrInvalidQuery is returned for empty or whitespace-only questions. The
// engine rejects these before any embedding or model call.
var ErrInvalidQuery = errors.New("query must not be empty")

// Source identifies one retrieved passage backing an answer.
type Source struct {
	// ID is the chunk identifier.
	ID string `json:"id"`

	// Document is the corpus document the chunk came from.
	Document string `json:"document"`

	// Score is the similarity of the chunk to the question, higher is closer.
	Score float32 `json:"score"`
}

// Answer is the engine's reply to one question.
type Answer struct {
	// Text is the generated answer.
	Text string `json:"text"`

	// Model is the generative model that produced the answer.
	Model string `json:"model"`

	// Sources lists the documents the answer was grounded on, deduplicated
	// and in descending similarity order of their best chunk.
	Sources []Source `json:"sources"`
}

// Config holds the engine's collaborators.
type Config struct {
	// Embedder embeds incoming questions. It must match the model the index
	// was built with.
	Embedder embeddings.Embedder

	// Driver is the vector index to retrieve from.
	Driver vector.Driver

	// Completer generates the final answer.
	Completer llm.Completer

	// TopK is the number of chunks to retrieve per question.
	TopK uint

	// Logger is the provided logger
	Logger *slog.Logger
}

// Engine answers questions grounded in the vector index.
type Engine struct {
	cfg Config
}

// New validates the configuration and returns an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Driver == nil {
		return nil, fmt.Errorf("vector driver is required")
	}
	if cfg.Completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if cfg.TopK == 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	return &Engine{cfg: cfg}, nil
}

// Answer runs the full query path: embed the question, retrieve the top
// chunks, and complete against the grounded prompt. History, when present,
// is replayed to the model ahead of the grounded question so follow-ups
// keep their context.
func (e *Engine) Answer(ctx context.Context, query string, history ...llm.Message) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidQuery
	}

	queryVec, err := e.cfg.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := e.cfg.Driver.Query(ctx, queryVec, int(e.cfg.TopK))
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	e.cfg.Logger.Debug("retrieved context",
		"chunks", len(results),
		"top_k", e.cfg.TopK,
	)

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.NewSystemMessage(systemPersona))
	messages = append(messages, history...)
	messages = append(messages, llm.NewUserMessage(buildPrompt(query, results)))

	text, err := e.cfg.Completer.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	// Multiple chunks from one document collapse into a single source; the
	// first (highest-scoring) chunk wins.
	sources := make([]Source, 0, len(results))
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		if seen[r.Source] {
			continue
		}
		seen[r.Source] = true
		sources = append(sources, Source{
			ID:       r.ID,
			Document: r.Source,
			Score:    r.Score,
		})
	}

	return &Answer{
		Text:    text,
		Model:   e.cfg.Completer.Model(),
		Sources: sources,
	}, nil
}
