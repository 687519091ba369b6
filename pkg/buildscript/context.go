package buildscript

import (
	"strings"

	"github.com/Microsoft/Oryx-sub000/pkg/detector"
	"github.com/Microsoft/Oryx-sub000/pkg/platforms"
	"github.com/Microsoft/Oryx-sub000/pkg/sourcerepo"
	"github.com/Microsoft/Oryx-sub000/pkg/utils"
)

// Context describes one build invocation. It is read-only during generation.
type Context struct {
	SourceRepo sourcerepo.SourceRepo

	// Language and LanguageVersion pin the platform to build with.
	Language        string
	LanguageVersion string
	// Versions holds per-platform version requests such as NODE_VERSION.
	Versions map[string]string
	// Project and AppType steer .NET Core project selection.
	Project string
	AppType string

	EnableMultiPlatformBuild bool
	EnableDynamicInstall     bool
	EnableCheckers           bool
	DisabledPlatforms        map[string]bool

	// Properties are user-supplied key=value build properties.
	Properties map[string]string

	DestinationDir  string
	IntermediateDir string
	// ManifestDir overrides where oryx-manifest.toml is written.
	ManifestDir string

	PreBuildCommand     string
	PostBuildCommand    string
	PreBuildScriptPath  string
	PostBuildScriptPath string

	OperationID string

	pctx *platforms.Context
}

// HasDestinationDir reports whether output goes somewhere other than the source.
func (c *Context) HasDestinationDir() bool {
	if strings.TrimSpace(c.DestinationDir) == "" {
		return false
	}
	if c.SourceRepo == nil {
		return true
	}
	return !utils.AreSameDirectories(c.DestinationDir, c.SourceRepo.RootPath())
}

// PlatformContext returns the platform view of this invocation. It is
// created once so detection results are shared across calls.
func (c *Context) PlatformContext() *platforms.Context {
	if c.pctx != nil {
		return c.pctx
	}

	versions := make(map[string]string, len(c.Versions)+1)
	for name, v := range c.Versions {
		versions[strings.ToLower(name)] = v
	}
	if c.Language != "" && c.LanguageVersion != "" {
		versions[strings.ToLower(c.Language)] = c.LanguageVersion
	}

	c.pctx = &platforms.Context{
		Repo: &detector.Context{
			SourceRepo: c.SourceRepo,
			Versions:   versions,
			Project:    c.Project,
			AppType:    c.AppType,
			Cache:      detector.NewCache(),
		},
		Properties:           c.Properties,
		Disabled:             c.DisabledPlatforms,
		EnableDynamicInstall: c.EnableDynamicInstall,
		HasDestinationDir:    c.HasDestinationDir(),
	}
	return c.pctx
}
