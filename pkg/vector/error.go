package vector

import "errors"

var (
	// ErrNotFound is returned when a document or the compatibility stamp is
	// not present in the vector store.
	ErrNotFound = errors.New("not found")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrIncompatible is returned when an index was built with a different
	// embedding model or dimensionality than the one configured.
	ErrIncompatible = errors.New("vector index incompatible with configured embedding model")
)
