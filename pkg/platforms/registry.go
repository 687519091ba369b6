package platforms

import (
	"fmt"
	"strings"

	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
	"github.com/Microsoft/Oryx-sub000/pkg/versionprovider"
)

// Options configure where platforms look for SDKs and version lists.
type Options struct {
	EnableDynamicInstall bool
	StorageBaseURL       string
	// VersionCache backs storage listings across invocations; nil disables it.
	VersionCache       versionprovider.Cache
	InstallRoot        string
	DynamicInstallRoot string
	// DefaultVersions overrides the built-in default version per platform.
	DefaultVersions map[string]string
}

func (o Options) installRoot() string {
	if o.InstallRoot == "" {
		return DefaultInstallRoot
	}
	return o.InstallRoot
}

func (o Options) dynamicInstallRoot() string {
	if o.DynamicInstallRoot == "" {
		return DefaultDynamicInstallRoot
	}
	return o.DynamicInstallRoot
}

func (o Options) defaultVersion(platform, builtIn string) string {
	if v := strings.TrimSpace(o.DefaultVersions[platform]); v != "" {
		return v
	}
	return builtIn
}

// provider returns the version provider for a platform: SDK storage with
// dynamic install, otherwise the image's install directory.
func (o Options) provider(platform, storageName string, fallback []string, defaultVersion string) versionprovider.Provider {
	onDisk := &versionprovider.OnDiskProvider{
		Platform:       platform,
		InstallDir:     o.installRoot() + "/" + storageName,
		Fallback:       fallback,
		DefaultVersion: o.defaultVersion(platform, defaultVersion),
	}
	var storage versionprovider.Provider
	if o.EnableDynamicInstall {
		storage = versionprovider.NewStorageProvider(o.StorageBaseURL, storageName, o.VersionCache)
	}
	return versionprovider.Selector{OnDisk: onDisk, Storage: storage}.Select(o.EnableDynamicInstall)
}

// Registry holds the platforms in their fixed registration order.
type Registry struct {
	platforms []Platform
}

// NewRegistry creates the registry of every supported platform.
func NewRegistry(opts Options) *Registry {
	return NewRegistryOf(
		NewNodePlatform(opts),
		NewPythonPlatform(opts),
		NewDotNetCorePlatform(opts),
		NewPhpPlatform(opts),
		NewRubyPlatform(opts),
		NewHugoPlatform(opts),
		NewJavaPlatform(opts),
	)
}

// NewRegistryOf creates a registry over the given platforms, keeping their order.
func NewRegistryOf(platforms ...Platform) *Registry {
	return &Registry{platforms: platforms}
}

// All returns every registered platform in registration order.
func (r *Registry) All() []Platform {
	return append([]Platform(nil), r.platforms...)
}

// Enabled returns the platforms enabled for pctx.
func (r *Registry) Enabled(pctx *Context) []Platform {
	var enabled []Platform
	for _, p := range r.platforms {
		if p.IsEnabled(pctx) {
			enabled = append(enabled, p)
		}
	}
	return enabled
}

// EnabledNames returns the names of the enabled platforms.
func (r *Registry) EnabledNames(pctx *Context) []string {
	var names []string
	for _, p := range r.Enabled(pctx) {
		names = append(names, p.Name())
	}
	return names
}

// GetByName returns the first platform with a matching name, ignoring case.
func (r *Registry) GetByName(name string) (Platform, error) {
	for _, p := range r.platforms {
		if strings.EqualFold(p.Name(), name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("platform not found: %s", name)
}

// RuntimeInstallationScript returns the script installing version of the
// named platform into a runtime image.
func (r *Registry) RuntimeInstallationScript(pctx *Context, name, version string) (string, error) {
	p, err := r.GetByName(name)
	if err != nil {
		return "", oryxerr.NewUnsupportedLanguage("Platform '%s' is not supported.", name)
	}
	var local Context
	if pctx != nil {
		local = *pctx
	}
	local.EnableDynamicInstall = true
	return p.InstallerSnippet(&local, version), nil
}

// HasPlatform reports whether name is registered, returning its canonical name.
func (r *Registry) HasPlatform(name string) (string, bool) {
	p, err := r.GetByName(name)
	if err != nil {
		return "", false
	}
	return p.Name(), true
}
