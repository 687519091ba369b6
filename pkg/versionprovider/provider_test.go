package versionprovider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingXML = `<?xml version="1.0" encoding="utf-8"?>
<EnumerationResults ContainerName="https://sdks.example/python">
  <Blobs>
    <Blob>
      <Name>python-3.7.4.tar.gz</Name>
      <Metadata><Buildimage>github</Buildimage><Version>3.7.4</Version></Metadata>
    </Blob>
    <Blob>
      <Name>python-3.8.1.tar.gz</Name>
      <Metadata><version>3.8.1</version></Metadata>
    </Blob>
    <Blob>
      <Name>defaultVersion.txt</Name>
      <Metadata></Metadata>
    </Blob>
  </Blobs>
</EnumerationResults>`

func newStorageServer(t *testing.T, defaultFile string) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		switch {
		case r.URL.Path == "/python" && r.URL.Query().Get("comp") == "list" &&
			r.URL.Query().Get("restype") == "container" && r.URL.Query().Get("include") == "metadata":
			_, _ = w.Write([]byte(listingXML))
		case r.URL.Path == "/python/defaultVersion.txt":
			_, _ = w.Write([]byte(defaultFile))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestStorageProvider(t *testing.T) {
	srv, _ := newStorageServer(t, "# comment line\n\n3.8.1\n3.7.4\n")

	p := NewStorageProvider(srv.URL+"/", "python", nil)
	info, err := p.GetVersionInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"3.7.4", "3.8.1"}, info.SupportedVersions)
	assert.Equal(t, "3.8.1", info.DefaultVersion)
}

func TestStorageProviderEmptyDefault(t *testing.T) {
	srv, _ := newStorageServer(t, "# only comments\n")

	_, err := NewStorageProvider(srv.URL, "python", nil).GetVersionInfo(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")
}

func TestStorageProviderMissingBaseURL(t *testing.T) {
	_, err := NewStorageProvider("", "python", nil).GetVersionInfo(context.Background())
	assert.True(t, IsMissingBaseURL(err))
}

func TestStorageProviderHTTPError(t *testing.T) {
	srv, _ := newStorageServer(t, "3.8.1")
	_, err := NewStorageProvider(srv.URL, "ruby", nil).GetVersionInfo(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list ruby versions in storage")
	assert.Contains(t, err.Error(), "unexpected status")
}

type memoryCache struct {
	entries map[string]VersionInfo
}

func (c *memoryCache) Get(_ context.Context, key string) (VersionInfo, bool) {
	info, ok := c.entries[key]
	return info, ok
}

func (c *memoryCache) Put(_ context.Context, key string, info VersionInfo) error {
	c.entries[key] = info
	return nil
}

func TestStorageProviderUsesCache(t *testing.T) {
	srv, hits := newStorageServer(t, "3.8.1")
	cache := &memoryCache{entries: map[string]VersionInfo{}}
	p := NewStorageProvider(srv.URL, "python", cache)

	first, err := p.GetVersionInfo(context.Background())
	require.NoError(t, err)
	requests := *hits

	second, err := p.GetVersionInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, requests, *hits, "second lookup must be served from cache")
}

func TestParseDefaultVersionFile(t *testing.T) {
	assert.Equal(t, "12.16.1", parseDefaultVersionFile("#a\n  # b\n 12.16.1 \n"))
	assert.Equal(t, "", parseDefaultVersionFile("#a\n"))
}

func TestOnDiskProvider(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"3.7.4", "3.8.1", "latest"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, name), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "3.9.0"), nil, 0o644))

	p := &OnDiskProvider{Platform: "python", InstallDir: dir, Fallback: []string{"1.0.0"}, DefaultVersion: "3.8.1"}
	info, err := p.GetVersionInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"3.7.4", "3.8.1"}, info.SupportedVersions)
	assert.Equal(t, "3.8.1", info.DefaultVersion)

	missing := &OnDiskProvider{Platform: "python", InstallDir: filepath.Join(dir, "nope"), Fallback: []string{"1.0.0"}}
	info, err = missing.GetVersionInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0.0"}, info.SupportedVersions)
}

func TestSelector(t *testing.T) {
	onDisk := &StaticProvider{Versions: []string{"1.0.0"}}
	storage := NewStorageProvider("https://example", "python", nil)
	s := Selector{OnDisk: onDisk, Storage: storage}

	assert.Same(t, storage, s.Select(true))
	assert.Same(t, onDisk, s.Select(false))
	assert.Same(t, onDisk, Selector{OnDisk: onDisk}.Select(true))
}
