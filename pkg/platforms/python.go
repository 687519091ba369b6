package platforms

import (
	"context"
	"fmt"

	"github.com/Microsoft/Oryx-sub000/pkg/detector"
	"github.com/Microsoft/Oryx-sub000/pkg/logx"
	"github.com/Microsoft/Oryx-sub000/pkg/versioning"
)

// Python build properties and manifest keys.
const (
	PythonDefaultVersion      = "3.8.2"
	PythonVersionManifestKey  = "pythonVersion"
	VirtualEnvNameManifestKey = "virtualEnvName"
	PackageDirManifestKey     = "packagedir"
	CompressedVirtualEnvKey   = "compressedVirtualEnvFile"
	VirtualEnvNameProp        = "virtualenv_name"
	PackageDirProp            = "packagedir"
	CompressVirtualEnvProp    = "compress_virtualenv"
	DisableCollectStaticProp  = "disable_collectstatic"
	DefaultPackagesDir        = "__oryx_packages__"
	pythonVirtualEnvPrefix    = "pythonenv"
)

// PythonSupportedVersions is the fallback version list.
var PythonSupportedVersions = []string{"2.7.17", "3.6.10", "3.7.7", "3.8.2"}

// PythonPlatform builds Python apps into a virtual environment or a package dir.
type PythonPlatform struct {
	*base
}

// NewPythonPlatform creates the Python platform.
func NewPythonPlatform(opts Options) *PythonPlatform {
	return &PythonPlatform{base: &base{
		name:          detector.PythonPlatform,
		detector:      detector.NewPythonDetector(),
		provider:      opts.provider(detector.PythonPlatform, "python", PythonSupportedVersions, PythonDefaultVersion),
		installer:     newInstaller(detector.PythonPlatform, "python", opts),
		multiPlatform: true,
		logger:        logx.NewLogger("python-platform"),
	}}
}

type pythonSnippetData struct {
	BinDir          string
	VirtualEnvName  string
	PackagesDir     string
	CollectStatic   bool
	CompressCommand string
	CompressedFile  string
}

// virtualEnvName returns the venv name for version, honoring the property.
func (p *PythonPlatform) virtualEnvName(pctx *Context, version string) string {
	if name := pctx.Property(VirtualEnvNameProp); name != "" {
		return name
	}
	return pythonVirtualEnvPrefix + versioning.MajorMinor(version)
}

// GenerateSnippet installs requirements into a package dir when requested,
// otherwise into a virtual environment, then runs Django collectstatic.
func (p *PythonPlatform) GenerateSnippet(ctx context.Context, pctx *Context, detected *detector.Result) (*Snippet, error) {
	repo := pctx.Repo.SourceRepo
	version := detected.PlatformVersion
	data := pythonSnippetData{
		BinDir:        p.binDir(version, "bin"),
		PackagesDir:   pctx.Property(PackageDirProp),
		CollectStatic: repo.FileExists("manage.py") && !pctx.PropertyIsTrue(DisableCollectStaticProp),
	}

	props := map[string]string{PythonVersionManifestKey: version}
	if data.PackagesDir != "" {
		props[PackageDirManifestKey] = data.PackagesDir
	} else {
		data.VirtualEnvName = p.virtualEnvName(pctx, version)
		props[VirtualEnvNameManifestKey] = data.VirtualEnvName

		switch format := pctx.Property(CompressVirtualEnvProp); format {
		case "":
		case "tar-gz":
			data.CompressedFile = data.VirtualEnvName + ".tar.gz"
			data.CompressCommand = fmt.Sprintf("tar -zcf %s %s", data.CompressedFile, data.VirtualEnvName)
		case "zip":
			data.CompressedFile = data.VirtualEnvName + ".zip"
			data.CompressCommand = fmt.Sprintf("zip -y -q -r %s %s", data.CompressedFile, data.VirtualEnvName)
		default:
			return nil, fmt.Errorf("unsupported value '%s' for build property '%s'; use 'tar-gz' or 'zip'", format, CompressVirtualEnvProp)
		}
		if data.CompressedFile != "" {
			props[CompressedVirtualEnvKey] = data.CompressedFile
		}
	}

	script, err := render("python.sh.tpl", data)
	if err != nil {
		return nil, err
	}
	logx.Debug(ctx, "platforms", "python snippet: venv=%q packagedir=%q", data.VirtualEnvName, data.PackagesDir)
	return &Snippet{BashBuildScriptSnippet: script, BuildProperties: props}, nil
}

// DirectoriesToExcludeFromCopyToIntermediateDir skips build artifacts from earlier runs.
func (p *PythonPlatform) DirectoriesToExcludeFromCopyToIntermediateDir(pctx *Context) []string {
	excluded := []string{DefaultPackagesDir}
	if name := pctx.Property(VirtualEnvNameProp); name != "" {
		excluded = append(excluded, name)
	}
	if dir := pctx.Property(PackageDirProp); dir != "" && dir != DefaultPackagesDir {
		excluded = append(excluded, dir)
	}
	return excluded
}

// DirectoriesToExcludeFromCopyToBuildOutputDir drops the venv when it ships compressed.
func (p *PythonPlatform) DirectoriesToExcludeFromCopyToBuildOutputDir(pctx *Context, detected *detector.Result) []string {
	if detected == nil || pctx.Property(CompressVirtualEnvProp) == "" || pctx.Property(PackageDirProp) != "" {
		return nil
	}
	return []string{p.virtualEnvName(pctx, detected.PlatformVersion)}
}

// ToolsUsed reports the python version.
func (p *PythonPlatform) ToolsUsed(version string) map[string]string {
	return map[string]string{"python": version}
}
