package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
)

// URLListFile is the object name of the discovered company list.
const URLListFile = "company_urls.txt"

// URLList reads and writes the newline-delimited company URL list.
type URLList struct {
	blobs crawler.BlobStore
}

// NewURLList wraps a blob store.
func NewURLList(blobs crawler.BlobStore) *URLList {
	return &URLList{blobs: blobs}
}

// Read returns the non-blank lines of company_urls.txt, trimmed. A missing
// file yields crawler.ErrNotFound.
func (l *URLList) Read(ctx context.Context) ([]string, error) {
	data, err := l.blobs.GetObject(ctx, URLListFile)
	if err != nil {
		if errors.Is(err, crawler.ErrNotFound) {
			return nil, fmt.Errorf("read url list: %w", crawler.ErrNotFound)
		}
		return nil, fmt.Errorf("read url list: %w", err)
	}
	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			urls = append(urls, line)
		}
	}
	return urls, nil
}

// Write replaces company_urls.txt with one URL per line.
func (l *URLList) Write(ctx context.Context, urls []string) error {
	var buf bytes.Buffer
	for _, u := range urls {
		buf.WriteString(u)
		buf.WriteByte('\n')
	}
	if _, err := l.blobs.PutObject(ctx, URLListFile, "text/plain; charset=utf-8", &buf); err != nil {
		return fmt.Errorf("write url list: %w", err)
	}
	return nil
}
