package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
)

// ProgressFile is the object name of the processed-URL set.
const ProgressFile = "progress.json"

// ProgressSet is the set of company URLs that were fully processed. It keeps
// first-processed order so the file diff stays append-only.
type ProgressSet struct {
	blobs crawler.BlobStore

	mu    sync.Mutex
	order []string
	seen  map[string]struct{}
}

// LoadProgress reads progress.json. A missing file yields an empty set.
func LoadProgress(ctx context.Context, blobs crawler.BlobStore) (*ProgressSet, error) {
	p := &ProgressSet{blobs: blobs, seen: make(map[string]struct{})}
	data, err := blobs.GetObject(ctx, ProgressFile)
	if errors.Is(err, crawler.ErrNotFound) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return p, nil
	}
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	for _, u := range urls {
		p.add(u)
	}
	return p, nil
}

// Contains reports whether url was processed.
func (p *ProgressSet) Contains(url string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.seen[url]
	return ok
}

// Len returns the number of processed URLs.
func (p *ProgressSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// URLs returns the processed URLs in the order they were added.
func (p *ProgressSet) URLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.order...)
}

// Filter returns the entries of urls that were not processed yet.
func (p *ProgressSet) Filter(urls []string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := p.seen[u]; !ok {
			out = append(out, u)
		}
	}
	return out
}

// MarkProcessed adds url and rewrites progress.json. On write failure the
// in-memory set is rolled back so it keeps matching the file.
func (p *ProgressSet) MarkProcessed(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.seen[url]; ok {
		return nil
	}
	p.add(url)
	if err := p.save(ctx); err != nil {
		delete(p.seen, url)
		p.order = p.order[:len(p.order)-1]
		return err
	}
	return nil
}

func (p *ProgressSet) add(url string) {
	if _, ok := p.seen[url]; ok {
		return
	}
	p.seen[url] = struct{}{}
	p.order = append(p.order, url)
}

func (p *ProgressSet) save(ctx context.Context) error {
	data, err := encodeJSON(p.order)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if _, err := p.blobs.PutObject(ctx, ProgressFile, "application/json", bytes.NewReader(data)); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}
