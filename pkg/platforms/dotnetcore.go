package platforms

import (
	"context"
	"path"
	"strings"

	"github.com/Microsoft/Oryx-sub000/pkg/detector"
	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

// DotNetCore build properties and manifest keys.
const (
	DotNetCoreDefaultVersion     = "3.1.10"
	DotNetCoreVersionManifestKey = "dotnetCoreSdkVersion"
	StartupDllManifestKey        = "startupDllFileName"
	ZipAllOutputManifestKey      = "zipAllOutput"
	ZipAllOutputProp             = "zip_all_output"
	ProjectProp                  = "project"
	PublishOutputDir             = "oryx_publish_output"
	CompressedOutputFileName     = "oryx_output.tar.gz"
	DefaultBuildConfiguration    = "Release"
)

// DotNetCoreSupportedVersions is the fallback runtime version list.
var DotNetCoreSupportedVersions = []string{"1.0.16", "1.1.13", "2.0.9", "2.1.23", "2.2.8", "3.0.3", "3.1.10", "5.0.2"}

// DotNetCorePlatform restores, builds and publishes one .NET project.
type DotNetCorePlatform struct {
	*base
	projects *detector.DotNetCoreDetector
}

// NewDotNetCorePlatform creates the .NET Core platform. It does not take
// part in multi-platform builds.
func NewDotNetCorePlatform(opts Options) *DotNetCorePlatform {
	det := detector.NewDotNetCoreDetector()
	return &DotNetCorePlatform{
		base: &base{
			name:      detector.DotNetCorePlatform,
			detector:  det,
			provider:  opts.provider(detector.DotNetCorePlatform, "dotnet", DotNetCoreSupportedVersions, DotNetCoreDefaultVersion),
			installer: newInstaller(detector.DotNetCorePlatform, "dotnet", opts),
			logger:    logx.NewLogger("dotnet-platform"),
		},
		projects: det,
	}
}

type dotNetSnippetData struct {
	BinDir             string
	ProjectFile        string
	Configuration      string
	PublishDir         string
	ZipAllOutput       bool
	CompressedFileName string
}

// GenerateSnippet publishes the selected project. It declines when no
// project can be resolved.
func (p *DotNetCorePlatform) GenerateSnippet(ctx context.Context, pctx *Context, detected *detector.Result) (*Snippet, error) {
	repoCtx := *pctx.Repo
	if prop := pctx.Property(ProjectProp); prop != "" {
		repoCtx.Project = prop
	}
	if detected.ProjectFile != "" && repoCtx.Project == "" {
		repoCtx.Project = detected.ProjectFile
	}
	project, err := p.projects.FindProject(ctx, &repoCtx)
	if err != nil {
		return nil, err
	}
	if project == nil {
		p.logger.Info("No project file found to build; skipping .NET Core")
		return nil, nil
	}

	assembly := project.AssemblyName
	if assembly == "" {
		assembly = strings.TrimSuffix(path.Base(project.Path), path.Ext(project.Path))
	}

	data := dotNetSnippetData{
		BinDir:             p.binDir(detected.PlatformVersion, ""),
		ProjectFile:        project.Path,
		Configuration:      DefaultBuildConfiguration,
		PublishDir:         `$SOURCE_DIR/` + PublishOutputDir,
		ZipAllOutput:       pctx.PropertyIsTrue(ZipAllOutputProp),
		CompressedFileName: CompressedOutputFileName,
	}
	if pctx.HasDestinationDir {
		data.PublishDir = `$DESTINATION_DIR`
	}

	props := map[string]string{
		DotNetCoreVersionManifestKey: detected.PlatformVersion,
		StartupDllManifestKey:        assembly + ".dll",
	}
	if data.ZipAllOutput {
		props[ZipAllOutputManifestKey] = "true"
	}

	script, err := render("dotnetcore.sh.tpl", data)
	if err != nil {
		return nil, err
	}
	return &Snippet{
		BashBuildScriptSnippet: script,
		BuildProperties:        props,
		SkipCopyToDestination:  pctx.HasDestinationDir,
	}, nil
}

// DirectoriesToExcludeFromCopyToIntermediateDir skips earlier publish output.
func (p *DotNetCorePlatform) DirectoriesToExcludeFromCopyToIntermediateDir(_ *Context) []string {
	return []string{PublishOutputDir, "bin", "obj"}
}

// ToolsUsed reports the dotnet version.
func (p *DotNetCorePlatform) ToolsUsed(version string) map[string]string {
	return map[string]string{"dotnet": version}
}
