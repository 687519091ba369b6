package detector

import (
	"context"
	"encoding/xml"
	"fmt"
	"path"
	"strings"

	"github.com/Microsoft/Oryx-sub000/pkg/logx"
	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
)

// Project SDKs and package references used to classify .NET projects.
const (
	WebSdkName             = "Microsoft.NET.Sdk.Web"
	BlazorWasmSdkName      = "Microsoft.NET.Sdk.BlazorWebAssembly"
	FunctionsPackageName   = "Microsoft.NET.Sdk.Functions"
	AspNetCorePackageName  = "Microsoft.AspNetCore"
	ProjectEnvironmentName = "PROJECT"
)

// DotNetCore application kinds.
const (
	AppTypeWebApp    = "webapp"
	AppTypeFunctions = "functions"
	AppTypeBlazor    = "blazor"
)

// TargetFrameworkVersions maps target framework monikers to runtime versions.
var TargetFrameworkVersions = map[string]string{
	"netcoreapp1.0": "1.0.16",
	"netcoreapp1.1": "1.1.13",
	"netcoreapp2.0": "2.0.9",
	"netcoreapp2.1": "2.1.23",
	"netcoreapp2.2": "2.2.8",
	"netcoreapp3.0": "3.0.3",
	"netcoreapp3.1": "3.1.10",
	"netcoreapp5.0": "5.0.2",
	"net5.0":        "5.0.2",
}

type projectFile struct {
	XMLName xml.Name `xml:"Project"`
	Sdk     string   `xml:"Sdk,attr"`
	Sdks    []struct {
		Name string `xml:"Name,attr"`
	} `xml:"Sdk"`
	PropertyGroups []struct {
		TargetFramework  string `xml:"TargetFramework"`
		TargetFrameworks string `xml:"TargetFrameworks"`
		AssemblyName     string `xml:"AssemblyName"`
	} `xml:"PropertyGroup"`
	ItemGroups []struct {
		PackageReferences []struct {
			Include string `xml:"Include,attr"`
		} `xml:"PackageReference"`
	} `xml:"ItemGroup"`
}

func (p *projectFile) hasSdk(name string) bool {
	if strings.EqualFold(p.Sdk, name) || strings.HasPrefix(strings.ToLower(p.Sdk), strings.ToLower(name)+"/") {
		return true
	}
	for _, s := range p.Sdks {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

func (p *projectFile) hasPackage(name string) bool {
	for _, g := range p.ItemGroups {
		for _, ref := range g.PackageReferences {
			if strings.EqualFold(ref.Include, name) {
				return true
			}
		}
	}
	return false
}

func (p *projectFile) appType() string {
	switch {
	case p.hasSdk(BlazorWasmSdkName):
		return AppTypeBlazor
	case p.hasPackage(FunctionsPackageName):
		return AppTypeFunctions
	case p.hasSdk(WebSdkName),
		p.hasPackage(AspNetCorePackageName),
		p.hasPackage(AspNetCorePackageName + ".All"),
		p.hasPackage(AspNetCorePackageName + ".App"):
		return AppTypeWebApp
	default:
		return ""
	}
}

// targetFramework returns the first framework declared across all property groups.
func (p *projectFile) targetFramework() string {
	for _, g := range p.PropertyGroups {
		if tf := strings.TrimSpace(g.TargetFramework); tf != "" {
			return tf
		}
		if tfs := strings.TrimSpace(g.TargetFrameworks); tfs != "" {
			return strings.TrimSpace(strings.Split(tfs, ";")[0])
		}
	}
	return ""
}

func (p *projectFile) assemblyName() string {
	for _, g := range p.PropertyGroups {
		if name := strings.TrimSpace(g.AssemblyName); name != "" {
			return name
		}
	}
	return ""
}

// DotNetCoreDetector selects the single buildable .NET project in a repo.
type DotNetCoreDetector struct {
	logger *logx.Logger
}

// NewDotNetCoreDetector creates a .NET Core detector.
func NewDotNetCoreDetector() *DotNetCoreDetector {
	return &DotNetCoreDetector{logger: logx.NewLogger("dotnet-detector")}
}

// Name returns the platform name.
func (d *DotNetCoreDetector) Name() string { return DotNetCorePlatform }

// DotNetProject is the project selected for a build.
type DotNetProject struct {
	Path            string
	AppType         string
	TargetFramework string
	AssemblyName    string
}

// Detect finds the project to build and maps its target framework to a
// runtime version. Multiple qualifying projects of one kind is a usage error.
func (d *DotNetCoreDetector) Detect(ctx context.Context, dctx *Context) (*Result, error) {
	project, err := d.FindProject(ctx, dctx)
	if err != nil || project == nil {
		return nil, err
	}

	version := dctx.RequestedVersion(DotNetCorePlatform)
	if version == "" {
		tf := strings.ToLower(project.TargetFramework)
		version = TargetFrameworkVersions[tf]
		if version == "" && tf != "" {
			d.logger.Warn("Unknown target framework '%s' in %s", tf, project.Path)
		}
	}

	return &Result{
		Platform:        DotNetCorePlatform,
		PlatformVersion: version,
		ProjectFile:     project.Path,
		AppType:         project.AppType,
	}, nil
}

// FindProject selects the project to build: the PROJECT setting when given,
// otherwise the single qualifying project in the repo. Nil means none.
func (d *DotNetCoreDetector) FindProject(ctx context.Context, dctx *Context) (*DotNetProject, error) {
	var (
		projectPath string
		project     *projectFile
		err         error
	)
	if dctx.Project != "" {
		projectPath, project, err = d.explicitProject(dctx)
	} else {
		projectPath, project, err = d.probeProjects(ctx, dctx)
	}
	if err != nil || project == nil {
		return nil, err
	}

	logx.Debug(ctx, "detector", "selected .NET project %s in %s", projectPath, dctx.SourceRepo.RootPath())
	return &DotNetProject{
		Path:            projectPath,
		AppType:         project.appType(),
		TargetFramework: project.targetFramework(),
		AssemblyName:    project.assemblyName(),
	}, nil
}

func (d *DotNetCoreDetector) explicitProject(dctx *Context) (string, *projectFile, error) {
	rel := path.Clean(strings.TrimPrefix(strings.ReplaceAll(dctx.Project, "\\", "/"), "./"))
	if !dctx.SourceRepo.FileExists(rel) {
		return "", nil, oryxerr.NewInvalidUsage(
			"Could not find the project file '%s' specified by the environment variable '%s'. "+
				"Make sure the path to the project file is relative to the root of the repo. "+
				"For example: %s=src/Dashboard/Dashboard.csproj",
			dctx.Project, ProjectEnvironmentName, ProjectEnvironmentName)
	}
	project, err := d.parse(dctx, rel)
	if err != nil {
		return "", nil, err
	}
	return rel, project, nil
}

// probeProjects classifies every .csproj, falling back to .fsproj when no
// C# project qualifies.
func (d *DotNetCoreDetector) probeProjects(ctx context.Context, dctx *Context) (string, *projectFile, error) {
	for _, pattern := range []string{"*.csproj", "*.fsproj"} {
		files, err := dctx.SourceRepo.EnumerateFiles(pattern, true)
		if err != nil {
			return "", nil, err
		}
		if len(files) == 0 {
			continue
		}

		byKind := make(map[string][]string)
		parsed := make(map[string]*projectFile, len(files))
		for _, f := range files {
			p, err := d.parse(dctx, f)
			if err != nil {
				return "", nil, err
			}
			if kind := p.appType(); kind != "" {
				byKind[kind] = append(byKind[kind], f)
				parsed[f] = p
			}
		}

		candidates, ok := d.selectKind(ctx, dctx, byKind)
		if !ok {
			return "", nil, nil
		}
		switch len(candidates) {
		case 0:
			continue
		case 1:
			return candidates[0], parsed[candidates[0]], nil
		default:
			quoted := make([]string, len(candidates))
			for i, c := range candidates {
				quoted[i] = fmt.Sprintf("'%s'", c)
			}
			return "", nil, oryxerr.NewInvalidUsage(
				"Ambiguity in selecting a project to build. Found multiple projects: %s. "+
					"Use the environment variable '%s' to specify the relative path to the project to be built.",
				strings.Join(quoted, ", "), ProjectEnvironmentName)
		}
	}
	return "", nil, nil
}

// selectKind picks the candidate list for the requested app type. Without a
// hint, a repo mixing kinds is not detected; ok is false in that case.
func (d *DotNetCoreDetector) selectKind(ctx context.Context, dctx *Context, byKind map[string][]string) ([]string, bool) {
	if dctx.AppType != "" {
		return byKind[strings.ToLower(dctx.AppType)], true
	}
	if len(byKind) > 1 {
		d.logger.Warn("Found projects of several kinds in %s; set the app type to choose one", dctx.SourceRepo.RootPath())
		return nil, false
	}
	for kind, files := range byKind {
		logx.Debug(ctx, "detector", "found %d %s project(s)", len(files), kind)
		return files, true
	}
	return nil, true
}

func (d *DotNetCoreDetector) parse(dctx *Context, rel string) (*projectFile, error) {
	content, err := dctx.SourceRepo.ReadFile(rel)
	if err != nil {
		return nil, err
	}
	var p projectFile
	if err := xml.Unmarshal([]byte(content), &p); err != nil {
		return nil, oryxerr.NewFailedToParseFile(rel, err)
	}
	return &p, nil
}
