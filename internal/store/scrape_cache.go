package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
)

// ScrapeCache persists crawl results as scraped_data_<domain>.json.
type ScrapeCache struct {
	blobs crawler.BlobStore
}

// NewScrapeCache wraps a blob store.
func NewScrapeCache(blobs crawler.BlobStore) *ScrapeCache {
	return &ScrapeCache{blobs: blobs}
}

// FileName returns the cache object name for a company URL.
func (c *ScrapeCache) FileName(companyURL string) string {
	return crawler.CacheFileName(companyURL)
}

// Load returns the cached result for companyURL. The boolean is false when no
// cache exists.
func (c *ScrapeCache) Load(ctx context.Context, companyURL string) (*crawler.ScrapeResult, bool, error) {
	name := c.FileName(companyURL)
	data, err := c.blobs.GetObject(ctx, name)
	if errors.Is(err, crawler.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load scrape cache: %w", err)
	}
	result := crawler.NewScrapeResult()
	if err := json.Unmarshal(data, result); err != nil {
		return nil, false, fmt.Errorf("decode scrape cache %s: %w", name, err)
	}
	return result, true, nil
}

// Save writes result under the company's cache name and returns that name.
func (c *ScrapeCache) Save(ctx context.Context, companyURL string, result *crawler.ScrapeResult) (string, error) {
	name := c.FileName(companyURL)
	data, err := encodeJSON(result)
	if err != nil {
		return "", fmt.Errorf("encode scrape cache: %w", err)
	}
	if _, err := c.blobs.PutObject(ctx, name, "application/json", bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("save scrape cache: %w", err)
	}
	return name, nil
}

// encodeJSON indents by two spaces and leaves non-ASCII and markup characters
// unescaped.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
