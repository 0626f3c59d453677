// Package embeddings
package embeddings

import "context"

// Embedder provides text embedding capabilities. The model identity it
// reports is what the vector index gets stamped with, so two embedders that
// report the same Model and Dimensions must produce compatible vectors.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model returns the embedding model identifier.
	Model() string

	// Dimensions returns the embedding dimensionality.
	Dimensions() uint

	// Close releases any resources held by the embedder.
	Close() error
}
