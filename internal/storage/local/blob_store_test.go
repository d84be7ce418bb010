// Package local_test tests the local filesystem blob store.
package local_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
	"github.com/JakeFAU/vc-portfolio-digest/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("CreatesMissingBaseDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "out")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestPutObject(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("ValidPut", func(t *testing.T) {
		data := []byte("hello world")
		uri, err := store.PutObject(ctx, "test/object.txt", "text/plain", bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, "test/object.txt"), uri)

		// #nosec G304 -- test reads from the controlled temp directory.
		readData, err := os.ReadFile(filepath.Join(tempDir, "test/object.txt"))
		require.NoError(t, err)
		assert.Equal(t, data, readData)
	})

	t.Run("Overwrite", func(t *testing.T) {
		_, err := store.PutObject(ctx, "progress.json", "application/json", bytes.NewReader([]byte(`["a"]`)))
		require.NoError(t, err)
		_, err = store.PutObject(ctx, "progress.json", "application/json", bytes.NewReader([]byte(`["a","b"]`)))
		require.NoError(t, err)

		got, err := store.GetObject(ctx, "progress.json")
		require.NoError(t, err)
		assert.Equal(t, `["a","b"]`, string(got))

		entries, err := os.ReadDir(tempDir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp-", "temp files must not be left behind")
		}
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(ctx, "", "text/plain", bytes.NewReader([]byte("data")))
		assert.Error(t, err)
	})

	t.Run("Traversal", func(t *testing.T) {
		_, err := store.PutObject(ctx, "../escape.txt", "text/plain", bytes.NewReader([]byte("data")))
		assert.ErrorContains(t, err, "path traversal")
	})
}

func TestGetObjectAndExists(t *testing.T) {
	store, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "missing.json")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.GetObject(ctx, "missing.json")
	assert.ErrorIs(t, err, crawler.ErrNotFound)

	_, err = store.PutObject(ctx, "present.json", "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	ok, err = store.Exists(ctx, "present.json")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, local.WriteFileAtomic(path, []byte("first"), 0o600))
	require.NoError(t, local.WriteFileAtomic(path, []byte("second"), 0o600))

	// #nosec G304 -- test reads from the controlled temp directory.
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}
