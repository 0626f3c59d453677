// Package indexer builds the vector index from a document corpus: enumerate,
// chunk, embed, persist. Builds are strict; one bad document or failed
// embedding aborts the whole run and leaves the previous index untouched.
package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mediguideco/mediguide/pkg/chunker"
	"github.com/mediguideco/mediguide/pkg/corpus"
	"github.com/mediguideco/mediguide/pkg/embeddings"
	"github.com/mediguideco/mediguide/pkg/vector"
	"github.com/mediguideco/mediguide/pkg/worker"
)

// Config holds the pipeline's collaborators.
type Config struct {
	// Source enumerates the documents to index.
	Source corpus.Source

	// Chunker splits document text.
	Chunker *chunker.Chunker

	// Embedder generates chunk embeddings and stamps the index.
	Embedder embeddings.Embedder

	// Driver is the vector index the build writes into.
	Driver vector.Driver

	// NumWorkers bounds concurrent embedding calls.
	NumWorkers uint

	// Logger is the provided logger
	Logger *slog.Logger
}

// Result summarizes a completed index build.
type Result struct {
	// Documents is the number of corpus documents indexed.
	Documents int

	// Chunks is the number of chunks embedded and stored.
	Chunks int
}

// Indexer runs index builds.
type Indexer struct {
	cfg Config
}

// New validates the configuration and returns an Indexer.
func New(cfg Config) (*Indexer, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("corpus source is required")
	}
	if cfg.Chunker == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Driver == nil {
		return nil, fmt.Errorf("vector driver is required")
	}

	return &Indexer{cfg: cfg}, nil
}

// Build runs the full pipeline. All chunks are embedded in memory before the
// index is reset and rewritten, so a failed build never leaves a half-built
// index behind. Rebuilding from an unchanged corpus yields an equivalent index.
func (ix *Indexer) Build(ctx context.Context) (*Result, error) {
	docs, err := ix.cfg.Source.Documents()
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}

	ix.cfg.Logger.Info("building index",
		"documents", len(docs),
		"chunk_size", ix.cfg.Chunker.Size(),
		"chunk_overlap", ix.cfg.Chunker.Overlap(),
		"model", ix.cfg.Embedder.Model(),
	)

	var chunks []vector.Document
	for _, doc := range docs {
		for i, text := range ix.cfg.Chunker.Split(doc.Text) {
			chunks = append(chunks, vector.Document{
				ID:      fmt.Sprintf("%s#%d", doc.ID, i),
				Source:  doc.ID,
				Ordinal: i,
				Text:    text,
			})
		}
	}

	pool, err := worker.NewPool(&worker.Config{
		Embedder:   ix.cfg.Embedder,
		NumWorkers: ix.cfg.NumWorkers,
		Logger:     ix.cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	if err := pool.EmbedAll(ctx, chunks); err != nil {
		return nil, fmt.Errorf("embedding corpus: %w", err)
	}

	// Everything embedded; now swap the index contents.
	meta := vector.Meta{
		Model:      ix.cfg.Embedder.Model(),
		Dimensions: ix.cfg.Embedder.Dimensions(),
	}
	if err := ix.cfg.Driver.Reset(ctx, meta); err != nil {
		return nil, fmt.Errorf("resetting index: %w", err)
	}
	if err := ix.cfg.Driver.Add(ctx, chunks); err != nil {
		return nil, fmt.Errorf("storing chunks: %w", err)
	}

	ix.cfg.Logger.Info("index build complete",
		"documents", len(docs),
		"chunks", len(chunks),
	)

	return &Result{
		Documents: len(docs),
		Chunks:    len(chunks),
	}, nil
}
