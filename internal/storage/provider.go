// Package storage selects the blob store backing the scrape cache, the
// progress set and the company URL list.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
	"github.com/JakeFAU/vc-portfolio-digest/internal/storage/gcs"
	"github.com/JakeFAU/vc-portfolio-digest/internal/storage/local"
	"github.com/JakeFAU/vc-portfolio-digest/internal/storage/memory"
)

// Supported backends.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendGCS    = "gcs"
)

// Config chooses and configures a backend.
type Config struct {
	Backend string
	Local   local.Config
	GCS     gcs.Config
}

// CloseFunc releases backend resources.
type CloseFunc func() error

func noopClose() error { return nil }

// New opens the configured blob store.
func New(ctx context.Context, cfg Config) (crawler.BlobStore, CloseFunc, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendLocal:
		store, err := local.New(cfg.Local)
		if err != nil {
			return nil, nil, fmt.Errorf("open local store: %w", err)
		}
		return store, noopClose, nil
	case BackendMemory:
		return memory.NewBlobStore(), noopClose, nil
	case BackendGCS:
		store, err := gcs.Open(ctx, cfg.GCS)
		if err != nil {
			return nil, nil, fmt.Errorf("open gcs store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
