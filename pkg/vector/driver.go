// Package vector provides interfaces and implementations for the persisted
// vector index that backs retrieval.
package vector

import (
	"context"
	"math"
)

// Meta is the compatibility stamp persisted alongside the index. An index
// built with one embedding model must never be queried with another.
type Meta struct {
	// Model is the embedding model identifier the index was built with.
	Model string

	// Dimensions is the embedding dimensionality.
	Dimensions uint
}

// Document represents a stored chunk with its embedding and provenance.
type Document struct {
	// ID is a unique identifier for the chunk (source ID plus ordinal).
	ID string

	// Source is the originating document ID.
	Source string

	// Ordinal is the chunk's position within the source document.
	Ordinal int

	// Text is the chunk content used to assemble grounded prompts.
	Text string

	// Embedding is the vector representation of the chunk.
	Embedding []float32
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of chunk embeddings.
type Driver interface {
	// Add stores documents with their embeddings. A document with an
	// existing ID is updated in place.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding.
	// Equal scores resolve in insertion order.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Meta returns the compatibility stamp, or ErrNotFound when the index
	// has never been stamped.
	Meta(ctx context.Context) (Meta, error)

	// Reset removes all documents and restamps the index with m.
	Reset(ctx context.Context, m Meta) error

	// Close releases any resources held by the driver.
	Close() error
}

// Normalize returns v scaled to unit length. Zero vectors are returned
// unchanged. Searching with unit vectors makes L2 distance a monotonic
// transform of cosine similarity, so nearest-by-distance is nearest-by-cosine.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}
