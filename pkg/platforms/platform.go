// Package platforms turns a detected platform into a bash build snippet,
// the build properties written to the manifest, and the installer snippet
// for SDK versions missing from the image.
package platforms

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/Microsoft/Oryx-sub000/pkg/detector"
	"github.com/Microsoft/Oryx-sub000/pkg/logx"
	"github.com/Microsoft/Oryx-sub000/pkg/versioning"
	"github.com/Microsoft/Oryx-sub000/pkg/versionprovider"
)

//go:embed templates/*.tpl
var templateFS embed.FS

var snippetTemplates = template.Must(template.New("snippets").ParseFS(templateFS, "templates/*.tpl"))

// render executes the named embedded template.
func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := snippetTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// Snippet is a platform's contribution to the build script. A nil *Snippet
// means the platform declined to build.
type Snippet struct {
	BashBuildScriptSnippet string
	// BuildProperties are written to the manifest as key="value" lines.
	BuildProperties map[string]string
	// SkipCopyToDestination is set when the snippet writes its output to
	// the destination directory itself.
	SkipCopyToDestination bool
}

// Context is the per-invocation view of the build that platforms consult.
type Context struct {
	// Repo carries the source repo, requested versions and detection cache.
	Repo *detector.Context
	// Properties are user-supplied key=value build properties.
	Properties map[string]string
	// Disabled lists platform names turned off for this build.
	Disabled             map[string]bool
	EnableDynamicInstall bool
	// HasDestinationDir is set when output goes to a directory other than the source.
	HasDestinationDir bool
}

// Property returns a build property value, trimmed.
func (c *Context) Property(key string) string {
	if c == nil || c.Properties == nil {
		return ""
	}
	return strings.TrimSpace(c.Properties[key])
}

// PropertyIsTrue reports whether a build property is set to "true".
func (c *Context) PropertyIsTrue(key string) bool {
	return strings.EqualFold(c.Property(key), "true")
}

// Platform builds one language or framework.
type Platform interface {
	Name() string
	VersionInfo(ctx context.Context) (versionprovider.VersionInfo, error)
	// Detect runs detection and resolves the hint to a supported version,
	// using the default version when the repo has no hint.
	Detect(ctx context.Context, pctx *Context) (*detector.Result, error)
	ResolveVersion(ctx context.Context, version string) (string, error)
	GenerateSnippet(ctx context.Context, pctx *Context, detected *detector.Result) (*Snippet, error)
	IsEnabled(pctx *Context) bool
	IsEnabledForMultiPlatformBuild(pctx *Context) bool
	DirectoriesToExcludeFromCopyToIntermediateDir(pctx *Context) []string
	DirectoriesToExcludeFromCopyToBuildOutputDir(pctx *Context, detected *detector.Result) []string
	// InstallerSnippet returns the script installing version, or "" when
	// dynamic install is off or the version is already present.
	InstallerSnippet(pctx *Context, version string) string
	// ToolsUsed maps tool names to versions for the checkers.
	ToolsUsed(version string) map[string]string
}

// base implements the parts of Platform shared by every language.
type base struct {
	name          string
	detector      detector.Detector
	provider      versionprovider.Provider
	installer     *Installer
	multiPlatform bool
	logger        *logx.Logger
}

func (b *base) Name() string { return b.name }

func (b *base) VersionInfo(ctx context.Context) (versionprovider.VersionInfo, error) {
	info, err := b.provider.GetVersionInfo(ctx)
	if err != nil {
		return versionprovider.VersionInfo{}, fmt.Errorf("failed to get %s versions: %w", b.name, err)
	}
	return info, nil
}

func (b *base) ResolveVersion(ctx context.Context, version string) (string, error) {
	info, err := b.VersionInfo(ctx)
	if err != nil {
		return "", err
	}
	return versioning.Resolve(b.name, version, info.SupportedVersions, info.DefaultVersion).Unwrap()
}

func (b *base) Detect(ctx context.Context, pctx *Context) (*detector.Result, error) {
	result, err := detector.Detect(ctx, b.detector, pctx.Repo)
	if err != nil || result == nil {
		return nil, err
	}
	resolved, err := b.ResolveVersion(ctx, result.PlatformVersion)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("Detected %s version %s (hint %q)", b.name, resolved, result.PlatformVersion)
	out := *result
	out.PlatformVersion = resolved
	return &out, nil
}

func (b *base) IsEnabled(pctx *Context) bool {
	return pctx == nil || !pctx.Disabled[b.name]
}

func (b *base) IsEnabledForMultiPlatformBuild(_ *Context) bool {
	return b.multiPlatform
}

func (b *base) DirectoriesToExcludeFromCopyToIntermediateDir(_ *Context) []string { return nil }

func (b *base) DirectoriesToExcludeFromCopyToBuildOutputDir(_ *Context, _ *detector.Result) []string {
	return nil
}

func (b *base) InstallerSnippet(pctx *Context, version string) string {
	if pctx == nil || !pctx.EnableDynamicInstall {
		b.logger.Debug("Dynamic install not enabled")
		return ""
	}
	if b.installer.IsVersionInstalled(version) {
		b.logger.Debug("%s version %s is already installed, skipping install", b.name, version)
		return ""
	}
	snippet, err := b.installer.Snippet(version)
	if err != nil {
		b.logger.Error("Failed to render installer for %s %s: %v", b.name, version, err)
		return ""
	}
	return snippet
}

func (b *base) ToolsUsed(version string) map[string]string {
	return map[string]string{b.name: version}
}

// binDir is where the SDK binaries of version live.
func (b *base) binDir(version, sub string) string {
	dir := b.installer.InstallDir(version)
	if sub == "" {
		return dir
	}
	return dir + "/" + sub
}
