package crawler

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by BlobStore.GetObject when the object does not exist.
var ErrNotFound = errors.New("object not found")

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Extractor turns raw page markup into cleaned visible text.
type Extractor interface {
	Extract(body []byte) (string, error)
}

// ShellDetector reports responses that carry a client-side application
// shell rather than rendered content.
type ShellDetector interface {
	LooksLikeShell(resp FetchResponse) bool
}

// RobotsPolicy decides whether a URL may be fetched.
type RobotsPolicy interface {
	Allowed(ctx context.Context, url string) bool
}

// RateLimiter paces fetches per domain.
type RateLimiter interface {
	Wait(ctx context.Context, url string) error
}

// BlobStore reads and writes small named artifacts (cache files, progress, URL lists).
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
	GetObject(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Ledger records a processed company in one output.
type Ledger interface {
	Append(ctx context.Context, record CompanyRecord) error
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
