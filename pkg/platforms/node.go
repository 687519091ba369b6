package platforms

import (
	"context"

	"github.com/Microsoft/Oryx-sub000/pkg/detector"
	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

// Node versions baked into the image and build properties it reads.
const (
	NodeDefaultVersion        = "12.16.1"
	YarnVersion               = "1.17.3"
	NodeVersionManifestKey    = "nodeVersion"
	CompressedNodeModulesKey  = "compressedNodeModulesFile"
	CompressNodeModulesProp   = "compress_node_modules"
	NodeModulesDirName        = "node_modules"
	compressedNodeModulesFile = "node_modules.tar.gz"
)

// NodeSupportedVersions is the fallback version list.
var NodeSupportedVersions = []string{"6.17.1", "8.17.0", "10.19.0", "12.16.1", "13.9.0"}

// NodePlatform builds Node.js apps with npm or yarn.
type NodePlatform struct {
	*base
}

// NewNodePlatform creates the Node.js platform.
func NewNodePlatform(opts Options) *NodePlatform {
	return &NodePlatform{base: &base{
		name:          detector.NodePlatform,
		detector:      detector.NewNodeDetector(),
		provider:      opts.provider(detector.NodePlatform, "nodejs", NodeSupportedVersions, NodeDefaultVersion),
		installer:     newInstaller(detector.NodePlatform, "nodejs", opts),
		multiPlatform: true,
		logger:        logx.NewLogger("node-platform"),
	}}
}

type nodeSnippetData struct {
	BinDir              string
	PackageManager      string
	InstallCommand      string
	BuildScript         string
	CompressNodeModules bool
	CompressedFile      string
}

// GenerateSnippet installs dependencies, runs the build script when one is
// declared, and optionally tars node_modules.
func (p *NodePlatform) GenerateSnippet(ctx context.Context, pctx *Context, detected *detector.Result) (*Snippet, error) {
	repo := pctx.Repo.SourceRepo
	data := nodeSnippetData{
		BinDir:         p.binDir(detected.PlatformVersion, "bin"),
		PackageManager: "npm",
		InstallCommand: "npm install --unsafe-perm",
	}
	if repo.FileExists("yarn.lock") {
		data.PackageManager = "yarn"
		data.InstallCommand = "yarn install --prefer-offline"
	}

	if repo.FileExists("package.json") {
		content, err := repo.ReadFile("package.json")
		if err != nil {
			return nil, err
		}
		scripts := detector.PackageJSONScripts(content)
		switch {
		case scripts["build:azure"] != "":
			data.BuildScript = "build:azure"
		case scripts["build"] != "":
			data.BuildScript = "build"
		}
	} else {
		data.InstallCommand = ""
	}

	props := map[string]string{NodeVersionManifestKey: detected.PlatformVersion}
	if pctx.Property(CompressNodeModulesProp) == "tar-gz" {
		data.CompressNodeModules = true
		data.CompressedFile = compressedNodeModulesFile
		props[CompressedNodeModulesKey] = compressedNodeModulesFile
	}

	script, err := render("node.sh.tpl", data)
	if err != nil {
		return nil, err
	}
	logx.Debug(ctx, "platforms", "node snippet uses %s", data.PackageManager)
	return &Snippet{BashBuildScriptSnippet: script, BuildProperties: props}, nil
}

// DirectoriesToExcludeFromCopyToIntermediateDir keeps installed modules out of the copy.
func (p *NodePlatform) DirectoriesToExcludeFromCopyToIntermediateDir(_ *Context) []string {
	return []string{NodeModulesDirName}
}

// DirectoriesToExcludeFromCopyToBuildOutputDir drops node_modules when it ships compressed.
func (p *NodePlatform) DirectoriesToExcludeFromCopyToBuildOutputDir(pctx *Context, _ *detector.Result) []string {
	if pctx.Property(CompressNodeModulesProp) == "tar-gz" {
		return []string{NodeModulesDirName}
	}
	return nil
}

// ToolsUsed reports node and the package manager versions.
func (p *NodePlatform) ToolsUsed(version string) map[string]string {
	return map[string]string{"node": version, "yarn": YarnVersion}
}
