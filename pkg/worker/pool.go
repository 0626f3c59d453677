// Package worker provides a bounded worker pool for embedding chunks during
// index builds. Embedding is the slow part of indexing, so chunks fan out
// across workers while results land back in their original positions, keeping
// index builds deterministic.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mediguideco/mediguide/pkg/embeddings"
	"github.com/mediguideco/mediguide/pkg/logger"
	"github.com/mediguideco/mediguide/pkg/vector"
)

var defaultNumWorkers uint = 3

// Config is the configuration options for the embedding pool.
type Config struct {
	// Embedder generates text embeddings.
	Embedder embeddings.Embedder

	// NumWorkers is the number of concurrent embedding workers.
	NumWorkers uint

	// Logger is the provided logger
	Logger *slog.Logger
}

// Pool embeds batches of chunks concurrently.
type Pool struct {
	embedder   embeddings.Embedder
	numWorkers uint
	logger     *slog.Logger
}

// NewPool creates a new embedding pool.
func NewPool(c *Config) (*Pool, error) {
	if c.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	numWorkers := c.NumWorkers
	if numWorkers == 0 {
		numWorkers = defaultNumWorkers
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Pool{
		embedder:   c.Embedder,
		numWorkers: numWorkers,
		logger:     log,
	}, nil
}

// EmbedAll fills in the Embedding field of every document in docs, in place.
// Workers pull documents by index so output positions never depend on
// scheduling. The first embedding failure cancels the remaining work and is
// returned; partial results must not be trusted after an error.
func (p *Pool) EmbedAll(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	indexes := make(chan int)
	errs := make(chan error, p.numWorkers)

	var wg sync.WaitGroup
	wg.Add(int(p.numWorkers))
	for i := range p.numWorkers {
		go func(id uint) {
			defer wg.Done()
			p.logger.Debug("embedding worker started", "worker_id", id)

			for idx := range indexes {
				embedding, err := p.embedder.Embed(ctx, docs[idx].Text)
				if err != nil {
					errs <- fmt.Errorf("embedding chunk %s: %w", docs[idx].ID, err)
					cancel()
					return
				}
				docs[idx].Embedding = embedding
			}

			p.logger.Debug("embedding worker stopped", "worker_id", id)
		}(i)
	}

	// Feed indexes until done or a worker fails.
feed:
	for i := range docs {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}

	return ctx.Err()
}
