// Package corpus enumerates and loads the reference documents that get
// chunked and embedded into the vector index.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoDocuments is returned when a source contains nothing to index.
var ErrNoDocuments = errors.New("corpus contains no documents")

// Document is a single source text with a stable identifier. The ID is the
// path relative to the corpus root, so re-indexing the same tree produces
// the same IDs.
type Document struct {
	ID   string
	Path string
	Text string
}

// Source enumerates documents for indexing.
type Source interface {
	// Documents returns all documents in a stable order.
	Documents() ([]Document, error)
}

// DirSource reads .txt and .md files from a directory tree.
type DirSource struct {
	root string
}

// NewDirSource creates a source rooted at dir. The directory must exist.
func NewDirSource(dir string) (*DirSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening corpus dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path %q is not a directory", dir)
	}

	return &DirSource{root: dir}, nil
}

// Root returns the corpus root directory.
func (s *DirSource) Root() string {
	return s.root
}

// Documents walks the tree and loads every .txt and .md file, sorted by
// relative path so indexing order is deterministic. Any unreadable file
// aborts the walk; a partially-loaded corpus must never be indexed.
func (s *DirSource) Documents() ([]Document, error) {
	var paths []string

	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".txt" || ext == ".md" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking corpus dir: %w", err)
	}

	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDocuments, s.root)
	}

	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			rel = path
		}

		docs = append(docs, Document{
			ID:   filepath.ToSlash(rel),
			Path: path,
			Text: string(data),
		})
	}

	return docs, nil
}
