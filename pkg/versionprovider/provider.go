// Package versionprovider supplies the supported versions and default version
// of each platform, either from the build image (on disk) or from SDK storage.
package versionprovider

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// VersionInfo is the supported version set of a platform plus its default.
type VersionInfo struct {
	SupportedVersions []string `json:"supported_versions"`
	DefaultVersion    string   `json:"default_version"`
}

// Provider returns the version information of one platform.
type Provider interface {
	GetVersionInfo(ctx context.Context) (VersionInfo, error)
}

// StaticProvider serves a fixed version list.
type StaticProvider struct {
	Versions       []string
	DefaultVersion string
}

// GetVersionInfo returns the fixed list.
func (p *StaticProvider) GetVersionInfo(_ context.Context) (VersionInfo, error) {
	return VersionInfo{
		SupportedVersions: append([]string(nil), p.Versions...),
		DefaultVersion:    p.DefaultVersion,
	}, nil
}

// OnDiskProvider lists the versions installed in the build image. Each
// version is a sub-directory of InstallDir named after it; when the directory
// is missing or empty the baked Fallback list is served.
type OnDiskProvider struct {
	Platform       string
	InstallDir     string
	Fallback       []string
	DefaultVersion string
}

// GetVersionInfo scans InstallDir.
func (p *OnDiskProvider) GetVersionInfo(_ context.Context) (VersionInfo, error) {
	versions, err := installedVersions(p.InstallDir)
	if err != nil {
		return VersionInfo{}, fmt.Errorf("failed to list installed %s versions: %w", p.Platform, err)
	}
	if len(versions) == 0 {
		versions = append(versions, p.Fallback...)
	}
	return VersionInfo{SupportedVersions: versions, DefaultVersion: p.DefaultVersion}, nil
}

// installedVersions returns the version-named sub-directories of dir. A
// missing dir is not an error.
func installedVersions(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var versions []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := semver.NewVersion(entry.Name()); err != nil {
			continue
		}
		versions = append(versions, entry.Name())
	}
	sort.Strings(versions)
	return versions, nil
}

// Selector picks between the on-disk and storage-backed providers of a
// platform according to the dynamic-install flag.
type Selector struct {
	OnDisk  Provider
	Storage Provider
}

// Select returns the storage provider when dynamic install is enabled.
func (s Selector) Select(enableDynamicInstall bool) Provider {
	if enableDynamicInstall && s.Storage != nil {
		return s.Storage
	}
	return s.OnDisk
}
