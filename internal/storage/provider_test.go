package storage

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/vc-portfolio-digest/internal/storage/local"
	"github.com/JakeFAU/vc-portfolio-digest/internal/storage/memory"
)

func TestNewLocalDefault(t *testing.T) {
	t.Parallel()

	store, closeFn, err := New(context.Background(), Config{Local: local.Config{BaseDir: t.TempDir()}})
	require.NoError(t, err)
	defer func() { require.NoError(t, closeFn()) }()

	_, ok := store.(*local.BlobStore)
	assert.True(t, ok)

	_, err = store.PutObject(context.Background(), "progress.json", "application/json", bytes.NewReader([]byte("[]")))
	require.NoError(t, err)
}

func TestNewMemory(t *testing.T) {
	t.Parallel()

	store, closeFn, err := New(context.Background(), Config{Backend: "Memory"})
	require.NoError(t, err)
	require.NoError(t, closeFn())
	_, ok := store.(*memory.BlobStore)
	assert.True(t, ok)
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	_, _, err := New(context.Background(), Config{Backend: "s3"})
	assert.ErrorContains(t, err, "unknown storage backend")

	_, _, err = New(context.Background(), Config{Backend: BackendGCS})
	assert.ErrorContains(t, err, "bucket name is required")

	_, _, err = New(context.Background(), Config{Backend: BackendLocal})
	assert.ErrorContains(t, err, "base directory is required")
}
