package testutils

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// ModelName overrides the reported model identifier.
	ModelName string

	// Dims overrides the reported dimensionality (defaults to 3).
	Dims uint
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Return a default embedding for any text
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *MockEmbedder) Model() string {
	if m.ModelName != "" {
		return m.ModelName
	}
	return "mock"
}

func (m *MockEmbedder) Dimensions() uint {
	if m.Dims != 0 {
		return m.Dims
	}
	return 3
}

func (m *MockEmbedder) Close() error {
	return nil
}

// WordEmbedder is a deterministic bag-of-words embedder for end-to-end
// tests. Each token hashes into one of Dims buckets; texts sharing words
// land near each other, so retrieval behaves like a tiny real model without
// any network dependency.
type WordEmbedder struct {
	Dims uint
}

func NewWordEmbedder(dims uint) *WordEmbedder {
	return &WordEmbedder{Dims: dims}
}

func (w *WordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	embedding := make([]float32, w.Dims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?()\"'")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(token))
		embedding[h.Sum32()%uint32(w.Dims)]++
	}
	return embedding, nil
}

func (w *WordEmbedder) Model() string {
	return "test-bag-of-words"
}

func (w *WordEmbedder) Dimensions() uint {
	return w.Dims
}

func (w *WordEmbedder) Close() error {
	return nil
}
