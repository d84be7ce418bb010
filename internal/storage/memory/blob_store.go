// Package memory stores blob content in-memory for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
)

// BlobStore stores artifacts in-memory and returns pseudo URIs.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{data: make(map[string][]byte)}
}

// PutObject persists a copy of the content and returns a memory:// URI.
func (s *BlobStore) PutObject(_ context.Context, path string, _ string, data io.Reader) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	byteData, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("failed to read data from reader: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = append([]byte(nil), byteData...)
	return fmt.Sprintf("memory://%s", path), nil
}

// GetObject returns a copy of the content stored at path.
func (s *BlobStore) GetObject(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[path]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", path, crawler.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Exists reports whether path has been written.
func (s *BlobStore) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[path]
	return ok, nil
}

// Paths lists stored paths in lexical order.
func (s *BlobStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for p := range s.data {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
