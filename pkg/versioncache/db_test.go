package versioncache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Microsoft/Oryx-sub000/pkg/versionprovider"
)

func openTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache", "versions.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, time.Hour)

	_, ok := store.Get(ctx, "https://sdks/python")
	assert.False(t, ok)

	info := versionprovider.VersionInfo{SupportedVersions: []string{"3.7.4", "3.8.1"}, DefaultVersion: "3.8.1"}
	require.NoError(t, store.Put(ctx, "https://sdks/python", info))

	got, ok := store.Get(ctx, "https://sdks/python")
	require.True(t, ok)
	assert.Equal(t, info, got)

	updated := versionprovider.VersionInfo{SupportedVersions: []string{"3.9.0"}, DefaultVersion: "3.9.0"}
	require.NoError(t, store.Put(ctx, "https://sdks/python", updated))
	got, ok = store.Get(ctx, "https://sdks/python")
	require.True(t, ok)
	assert.Equal(t, updated, got)
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, time.Minute)

	now := time.Now()
	store.now = func() time.Time { return now }
	require.NoError(t, store.Put(ctx, "k", versionprovider.VersionInfo{SupportedVersions: []string{"1.0.0"}, DefaultVersion: "1.0.0"}))

	store.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)

	n, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "versions.db")
	store, err := Open(path, time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "k", versionprovider.VersionInfo{DefaultVersion: "1.0.0"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path, time.Hour)
	require.NoError(t, err)
	defer reopened.Close()

	_, ok := reopened.Get(context.Background(), "k")
	assert.True(t, ok)
}
