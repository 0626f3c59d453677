// Package chunker splits document text into fixed-size overlapping chunks
// for embedding. Sizes are measured in runes so multi-byte text never gets
// split mid-character.
package chunker

import (
	"errors"
	"fmt"
)

// ErrConfig is returned when chunking parameters are invalid.
var ErrConfig = errors.New("invalid chunking configuration")

// Chunker splits text into overlapping windows of a fixed rune length.
// A Chunker is immutable after construction and safe for concurrent use.
type Chunker struct {
	size    int
	overlap int
}

// New validates the chunking parameters and returns a Chunker.
// size must be positive, overlap non-negative, and overlap strictly
// smaller than size so that consecutive chunks always advance.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must be non-negative, got %d", ErrConfig, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than size %d", ErrConfig, overlap, size)
	}

	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the configured chunk size in runes.
func (c *Chunker) Size() int {
	return c.size
}

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Split divides text into chunks of up to size runes, where chunk i starts
// at offset i*(size-overlap). The final chunk may be shorter than size.
// Empty or whitespace-free-empty input yields no chunks.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	stride := c.size - c.overlap

	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}
