package versionprovider

import (
	"bufio"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

// Storage layout constants.
const (
	SdkStorageBaseURLEnvVar = "ORYX_SDK_STORAGE_BASE_URL"
	DefaultVersionFileName  = "defaultVersion.txt"
	containerMetadataQuery  = "?restype=container&comp=list&include=metadata"
	defaultStorageTimeout   = 30 * time.Second
)

// ErrMissingStorageBaseURL is returned when no SDK storage URL is configured.
var ErrMissingStorageBaseURL = fmt.Errorf("environment variable '%s' is required for dynamic install", SdkStorageBaseURLEnvVar)

// Cache stores version listings between invocations.
type Cache interface {
	Get(ctx context.Context, key string) (VersionInfo, bool)
	Put(ctx context.Context, key string, info VersionInfo) error
}

// StorageProvider reads the version list and default version of a platform
// from SDK blob storage.
type StorageProvider struct {
	BaseURL string
	// Platform is the storage container name, e.g. "nodejs" for Node.
	Platform string
	Client   *http.Client
	Cache    Cache
	logger   *logx.Logger
}

// NewStorageProvider creates a provider for the given storage container.
func NewStorageProvider(baseURL, platform string, cache Cache) *StorageProvider {
	return &StorageProvider{
		BaseURL:  strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		Platform: platform,
		Client:   &http.Client{Timeout: defaultStorageTimeout},
		Cache:    cache,
		logger:   logx.NewLogger("sdk-storage"),
	}
}

// blobList mirrors the container listing returned by blob storage.
type blobList struct {
	XMLName xml.Name `xml:"EnumerationResults"`
	Blobs   []struct {
		Name     string `xml:"Name"`
		Metadata struct {
			Items []struct {
				XMLName xml.Name
				Value   string `xml:",chardata"`
			} `xml:",any"`
		} `xml:"Metadata"`
	} `xml:"Blobs>Blob"`
}

// GetVersionInfo fetches the listing and default version, consulting the cache first.
func (p *StorageProvider) GetVersionInfo(ctx context.Context) (VersionInfo, error) {
	if p.BaseURL == "" {
		return VersionInfo{}, ErrMissingStorageBaseURL
	}

	cacheKey := p.BaseURL + "/" + p.Platform
	if p.Cache != nil {
		if info, ok := p.Cache.Get(ctx, cacheKey); ok {
			logx.Debug(ctx, "versionprovider", "using cached version listing for %s", cacheKey)
			return info, nil
		}
	}

	versions, err := p.supportedVersions(ctx)
	if err != nil {
		return VersionInfo{}, logx.Wrap(err, fmt.Sprintf("failed to list %s versions in storage", p.Platform))
	}
	defaultVersion, err := p.defaultVersion(ctx)
	if err != nil {
		return VersionInfo{}, logx.Wrap(err, fmt.Sprintf("failed to read %s default version", p.Platform))
	}

	info := VersionInfo{SupportedVersions: versions, DefaultVersion: defaultVersion}
	if p.Cache != nil {
		if err := p.Cache.Put(ctx, cacheKey, info); err != nil {
			p.logger.Warn("Failed to cache version listing for %s: %v", cacheKey, err)
		}
	}
	return info, nil
}

func (p *StorageProvider) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}
	return body, nil
}

func (p *StorageProvider) supportedVersions(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/%s%s", p.BaseURL, p.Platform, containerMetadataQuery)
	body, err := p.get(ctx, url)
	if err != nil {
		return nil, err
	}
	return parseBlobListing(body)
}

// parseBlobListing extracts the Version metadata of every blob. The metadata
// element name is matched case-insensitively.
func parseBlobListing(body []byte) ([]string, error) {
	var list blobList
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to parse blob listing: %w", err)
	}

	var versions []string
	seen := make(map[string]bool)
	for _, blob := range list.Blobs {
		for _, item := range blob.Metadata.Items {
			if !strings.EqualFold(item.XMLName.Local, "version") {
				continue
			}
			v := strings.TrimSpace(item.Value)
			if v != "" && !seen[v] {
				seen[v] = true
				versions = append(versions, v)
			}
		}
	}
	return versions, nil
}

func (p *StorageProvider) defaultVersion(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/%s/%s", p.BaseURL, p.Platform, DefaultVersionFileName)
	body, err := p.get(ctx, url)
	if err != nil {
		return "", err
	}
	version := parseDefaultVersionFile(string(body))
	if version == "" {
		return "", fmt.Errorf("default version of platform '%s' in '%s' cannot be empty", p.Platform, url)
	}
	return version, nil
}

// parseDefaultVersionFile returns the first non-empty line that is not a
// '#' comment.
func parseDefaultVersionFile(content string) string {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line
	}
	return ""
}

// IsMissingBaseURL reports whether err is ErrMissingStorageBaseURL.
func IsMissingBaseURL(err error) bool {
	return errors.Is(err, ErrMissingStorageBaseURL)
}
