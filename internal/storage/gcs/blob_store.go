// Package gcs provides a BlobStore backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	// Prefix is prepended to every object name, e.g. "runs/a16z".
	Prefix string
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return fmt.Errorf("bucket name is required")
	}
	return nil
}

// BlobStore writes artifacts to a configured GCS bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
	prefix string
	owned  bool
}

// Open dials a GCS client using application default credentials.
// The returned store owns the client and closes it on Close.
func Open(ctx context.Context, cfg Config) (*BlobStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	s, err := New(client, cfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New creates a GCS-backed blob store around an existing client.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &BlobStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Close releases the client when the store created it.
func (s *BlobStore) Close() error {
	if s == nil || !s.owned {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close storage client: %w", err)
	}
	return nil
}

// PutObject uploads data to the configured bucket and returns a gs:// URI.
func (s *BlobStore) PutObject(ctx context.Context, name string, contentType string, r io.Reader) (string, error) {
	key, err := s.objectName(name)
	if err != nil {
		return "", err
	}
	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := io.Copy(writer, r); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return ObjectURI(s.bucket, key), nil
}

// GetObject downloads an object. Missing objects yield crawler.ErrNotFound.
func (s *BlobStore) GetObject(ctx context.Context, name string) ([]byte, error) {
	key, err := s.objectName(name)
	if err != nil {
		return nil, err
	}
	reader, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("read %s: %w", ObjectURI(s.bucket, key), crawler.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

// Exists reports whether the object is present.
func (s *BlobStore) Exists(ctx context.Context, name string) (bool, error) {
	key, err := s.objectName(name)
	if err != nil {
		return false, err
	}
	_, err = s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}

func (s *BlobStore) objectName(name string) (string, error) {
	return JoinObjectName(s.prefix, name)
}

// JoinObjectName prefixes name, rejecting empty names and parent references.
func JoinObjectName(prefix, name string) (string, error) {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return "", fmt.Errorf("path is required")
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return "", fmt.Errorf("path traversal detected")
		}
	}
	if prefix == "" {
		return path.Clean(name), nil
	}
	return path.Join(prefix, name), nil
}

// ObjectURI formats a gs:// URI.
func ObjectURI(bucket, key string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, key)
}
