// Package detector infers which platforms a source repo uses, and a raw
// version hint for each, by inspecting manifest files, file extensions and
// file contents. Detection is read-only and deterministic.
package detector

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Microsoft/Oryx-sub000/pkg/sourcerepo"
)

// Platform names shared by detectors, platforms and checkers.
const (
	NodePlatform       = "nodejs"
	PythonPlatform     = "python"
	DotNetCorePlatform = "dotnet"
	PhpPlatform        = "php"
	RubyPlatform       = "ruby"
	HugoPlatform       = "hugo"
	JavaPlatform       = "java"
)

// Result is a detected platform. An empty PlatformVersion means the platform
// was detected but the repo carries no version hint.
type Result struct {
	Platform        string `json:"platform" yaml:"platform"`
	PlatformVersion string `json:"platformVersion" yaml:"platformVersion"`
	// ProjectFile is the repo-relative project file selected for DotNetCore.
	ProjectFile string `json:"projectFile,omitempty" yaml:"projectFile,omitempty"`
	// AppType classifies DotNetCore projects: webapp, functions or blazor.
	AppType string `json:"appType,omitempty" yaml:"appType,omitempty"`
}

// Context carries the repo and caller-supplied hints for one invocation.
type Context struct {
	SourceRepo sourcerepo.SourceRepo
	// Versions holds explicit version requests keyed by platform name.
	Versions map[string]string
	// Project is the repo-relative project file chosen by the caller (PROJECT).
	Project string
	// AppType narrows DotNetCore project selection.
	AppType string
	// Cache memoizes detection for this invocation. Nil disables caching.
	Cache *Cache
}

// RequestedVersion returns the caller-supplied version for a platform.
func (c *Context) RequestedVersion(platform string) string {
	if c == nil || c.Versions == nil {
		return ""
	}
	return strings.TrimSpace(c.Versions[platform])
}

// Detector inspects a repo for one platform. A nil result means not detected.
type Detector interface {
	Name() string
	Detect(ctx context.Context, dctx *Context) (*Result, error)
}

// All returns one detector per supported platform in registration order.
func All() []Detector {
	return []Detector{
		NewNodeDetector(),
		NewPythonDetector(),
		NewDotNetCoreDetector(),
		NewPhpDetector(),
		NewRubyDetector(),
		NewHugoDetector(),
		NewJavaDetector(),
	}
}

type cacheKey struct {
	root     string
	platform string
}

type cacheEntry struct {
	result *Result
	err    error
}

// Cache memoizes detection results keyed by repo root and platform, so a
// detector shared across invocations never serves another repo's result.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

// NewCache creates an empty cache for one invocation.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]cacheEntry)}
}

// Len returns the number of cached detections.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Detect runs d against dctx, consulting and filling the context's cache.
func Detect(ctx context.Context, d Detector, dctx *Context) (*Result, error) {
	if dctx == nil || dctx.SourceRepo == nil {
		return nil, fmt.Errorf("detector %s: source repo is required", d.Name())
	}
	if dctx.Cache == nil {
		return d.Detect(ctx, dctx)
	}

	key := cacheKey{root: dctx.SourceRepo.RootPath(), platform: d.Name()}
	dctx.Cache.mu.Lock()
	entry, ok := dctx.Cache.entries[key]
	dctx.Cache.mu.Unlock()
	if ok {
		return copyResult(entry.result), entry.err
	}

	result, err := d.Detect(ctx, dctx)
	dctx.Cache.mu.Lock()
	dctx.Cache.entries[key] = cacheEntry{result: copyResult(result), err: err}
	dctx.Cache.mu.Unlock()
	return result, err
}

func copyResult(r *Result) *Result {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// DefaultDetector runs a fixed, ordered list of detectors.
type DefaultDetector struct {
	detectors []Detector
}

// NewDefaultDetector creates a detector over the given list, or All() when empty.
func NewDefaultDetector(detectors ...Detector) *DefaultDetector {
	if len(detectors) == 0 {
		detectors = All()
	}
	return &DefaultDetector{detectors: detectors}
}

// DetectAll returns every platform detected in the repo, in registration order.
func (d *DefaultDetector) DetectAll(ctx context.Context, dctx *Context) ([]*Result, error) {
	var results []*Result
	for _, det := range d.detectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := Detect(ctx, det, dctx)
		if err != nil {
			return nil, fmt.Errorf("%s detection failed: %w", det.Name(), err)
		}
		if result != nil {
			results = append(results, result)
		}
	}
	return results, nil
}
