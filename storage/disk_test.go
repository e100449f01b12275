package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestDiskStore(t *testing.T) *DiskStore {
	return NewDiskStore(DiskConfig{
		Root:          t.TempDir(),
		URLPrefix:     "/static/",
		WriteRetries:  2,
		RetryInterval: time.Millisecond,
	})
}

func TestDiskStorePut(t *testing.T) {
	ctx := context.Background()
	store := newTestDiskStore(t)

	key := "someone/medias/a.png"
	require.NoError(t, store.Put(ctx, key, []byte("image")))

	data, err := os.ReadFile(filepath.Join(store.config.Root, "someone", "medias", "a.png"))
	require.NoError(t, err)
	require.Equal(t, "image", string(data))
}

func TestDiskStorePutExisting(t *testing.T) {
	ctx := context.Background()
	store := newTestDiskStore(t)

	key := "someone/medias/a.png"
	require.NoError(t, store.Put(ctx, key, []byte("first")))

	err := store.Put(ctx, key, []byte("second"))
	require.Error(t, err)
	require.True(t, Error.Has(err))
	require.True(t, errors.Is(err, fs.ErrExist))

	// the original file is untouched
	data, err := os.ReadFile(store.Path(key))
	require.NoError(t, err)
	require.Equal(t, "first", string(data))

	requireNoTempFiles(t, store)
}

func TestDiskStorePutUsesTempFile(t *testing.T) {
	ctx := context.Background()
	store := newTestDiskStore(t)

	require.NoError(t, store.Put(ctx, "someone/medias/a.png", []byte("image")))
	requireNoTempFiles(t, store)

	// the temp directory sits next to the users' directories
	info, err := os.Stat(filepath.Join(store.config.Root, tempDir))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func requireNoTempFiles(t *testing.T, store *DiskStore) {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(store.config.Root, tempDir))
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDiskStorePutPermanentFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestDiskStore(t)

	// a regular file where a directory is expected
	require.NoError(t, os.WriteFile(filepath.Join(store.config.Root, "someone"), nil, 0644))

	err := store.Put(ctx, "someone/medias/a.png", []byte("image"))
	require.Error(t, err)
	require.True(t, Error.Has(err))
	require.False(t, errors.Is(err, fs.ErrExist))
}

func TestDiskStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestDiskStore(t)

	key := "someone/medias/a.png"
	require.NoError(t, store.Put(ctx, key, []byte("image")))
	require.NoError(t, store.Delete(ctx, key))

	_, err := os.Stat(store.Path(key))
	require.True(t, errors.Is(err, fs.ErrNotExist))

	// deleting twice is fine
	require.NoError(t, store.Delete(ctx, key))
}

func TestDiskStoreURL(t *testing.T) {
	store := newTestDiskStore(t)
	require.Equal(t, "/static/someone/medias/a.png", store.URL("someone/medias/a.png"))
}
