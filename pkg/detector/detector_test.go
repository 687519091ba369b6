package detector

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
	"github.com/Microsoft/Oryx-sub000/pkg/sourcerepo"
)

func repoWith(files map[string]string) *sourcerepo.Repo {
	fsys := fstest.MapFS{}
	for name, content := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return sourcerepo.NewFS("/repo", fsys)
}

func detect(t *testing.T, d Detector, files map[string]string) *Result {
	t.Helper()
	result, err := d.Detect(context.Background(), &Context{SourceRepo: repoWith(files)})
	require.NoError(t, err)
	return result
}

func TestLookupJSONString(t *testing.T) {
	v, state := LookupJSONString([]byte(`{"engines":{"node":"10.x"}}`), "engines", "node")
	assert.Equal(t, FieldPresent, state)
	assert.Equal(t, "10.x", v)

	_, state = LookupJSONString([]byte(`{"engines":{}}`), "engines", "node")
	assert.Equal(t, FieldAbsent, state)

	_, state = LookupJSONString([]byte(`{"engines":{"node":8}}`), "engines", "node")
	assert.Equal(t, FieldMalformed, state)

	_, state = LookupJSONString([]byte(`{not json`), "engines", "node")
	assert.Equal(t, FieldMalformed, state)
}

func TestNodeDetector(t *testing.T) {
	d := NewNodeDetector()

	assert.Nil(t, detect(t, d, map[string]string{"README.md": "x"}))

	result := detect(t, d, map[string]string{"package.json": `{"engines":{"node":"12.x"}}`})
	require.NotNil(t, result)
	assert.Equal(t, NodePlatform, result.Platform)
	assert.Equal(t, "12.x", result.PlatformVersion)

	result = detect(t, d, map[string]string{"server.js": "require('http')"})
	require.NotNil(t, result)
	assert.Empty(t, result.PlatformVersion)

	result = detect(t, d, map[string]string{"package.json": `{"engines":{"node":false}}`})
	require.NotNil(t, result)
	assert.Empty(t, result.PlatformVersion)
}

func TestNodeDetectorPrefersRequestedVersion(t *testing.T) {
	dctx := &Context{
		SourceRepo: repoWith(map[string]string{"package.json": `{"engines":{"node":"12.x"}}`}),
		Versions:   map[string]string{NodePlatform: "10"},
	}
	result, err := NewNodeDetector().Detect(context.Background(), dctx)
	require.NoError(t, err)
	assert.Equal(t, "10", result.PlatformVersion)
}

func TestPackageJSONScripts(t *testing.T) {
	scripts := PackageJSONScripts(`{"scripts":{"build":"sudo npm i","test":3}}`)
	assert.Equal(t, map[string]string{"build": "sudo npm i"}, scripts)
	assert.Nil(t, PackageJSONScripts("{"))
}

func TestPythonDetector(t *testing.T) {
	d := NewPythonDetector()

	tests := []struct {
		name    string
		files   map[string]string
		want    bool
		version string
	}{
		{"empty repo", map[string]string{}, false, ""},
		{"py without requirements", map[string]string{"app.py": ""}, false, ""},
		{"requirements only", map[string]string{"requirements.txt": "flask"}, false, ""},
		{"requirements with py", map[string]string{"requirements.txt": "flask", "app.py": ""}, true, ""},
		{"nested py does not count", map[string]string{"requirements.txt": "flask", "src/app.py": ""}, false, ""},
		{"runtime pin", map[string]string{"requirements.txt": "flask", "runtime.txt": "python-3.7.4"}, true, "3.7.4"},
		{"runtime major only", map[string]string{"requirements.txt": "flask", "runtime.txt": "python-1"}, true, "1"},
		{"runtime empty", map[string]string{"requirements.txt": "flask", "runtime.txt": ""}, false, ""},
		{"runtime garbage", map[string]string{"requirements.txt": "flask", "runtime.txt": "foo"}, false, ""},
		{"runtime without version", map[string]string{"requirements.txt": "flask", "runtime.txt": "python"}, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := detect(t, d, tt.files)
			if !tt.want {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, PythonPlatform, result.Platform)
			assert.Equal(t, tt.version, result.PlatformVersion)
		})
	}
}

func TestPythonRequestedVersionOverridesRuntime(t *testing.T) {
	dctx := &Context{
		SourceRepo: repoWith(map[string]string{"requirements.txt": "", "runtime.txt": "python-3.6.6"}),
		Versions:   map[string]string{PythonPlatform: "3.8"},
	}
	result, err := NewPythonDetector().Detect(context.Background(), dctx)
	require.NoError(t, err)
	assert.Equal(t, "3.8", result.PlatformVersion)
}

const webProject = `<Project Sdk="Microsoft.NET.Sdk.Web">
  <PropertyGroup>
    <OutputType>Exe</OutputType>
  </PropertyGroup>
  <PropertyGroup>
    <TargetFramework>netcoreapp2.1</TargetFramework>
  </PropertyGroup>
</Project>`

const libraryProject = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup><TargetFramework>netstandard2.0</TargetFramework></PropertyGroup>
</Project>`

const functionsProject = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup><TargetFramework>netcoreapp3.1</TargetFramework></PropertyGroup>
  <ItemGroup><PackageReference Include="Microsoft.NET.Sdk.Functions" Version="3.0.7" /></ItemGroup>
</Project>`

func TestDotNetCoreDetectorMapsTargetFramework(t *testing.T) {
	result := detect(t, NewDotNetCoreDetector(), map[string]string{
		"src/Web/Web.csproj": webProject,
		"src/Lib/Lib.csproj": libraryProject,
	})
	require.NotNil(t, result)
	assert.Equal(t, "2.1.23", result.PlatformVersion)
	assert.Equal(t, "src/Web/Web.csproj", result.ProjectFile)
	assert.Equal(t, AppTypeWebApp, result.AppType)
}

func TestDotNetCoreDetectorIgnoresNonWebProjects(t *testing.T) {
	assert.Nil(t, detect(t, NewDotNetCoreDetector(), map[string]string{"Lib.csproj": libraryProject}))
}

func TestDotNetCoreDetectorAmbiguity(t *testing.T) {
	_, err := NewDotNetCoreDetector().Detect(context.Background(), &Context{SourceRepo: repoWith(map[string]string{
		"Web1.csproj":             webProject,
		"nested/deep/Web2.csproj": webProject,
	})})
	require.Error(t, err)

	var usage *oryxerr.InvalidUsageError
	require.True(t, errors.As(err, &usage))
	assert.Contains(t, err.Error(), "'Web1.csproj', 'nested/deep/Web2.csproj'")
	assert.Contains(t, err.Error(), "PROJECT")
}

func TestDotNetCoreDetectorMixedKinds(t *testing.T) {
	files := map[string]string{
		"web/Web.csproj":   webProject,
		"func/Func.csproj": functionsProject,
	}
	assert.Nil(t, detect(t, NewDotNetCoreDetector(), files))

	result, err := NewDotNetCoreDetector().Detect(context.Background(), &Context{
		SourceRepo: repoWith(files),
		AppType:    AppTypeFunctions,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "func/Func.csproj", result.ProjectFile)
	assert.Equal(t, "3.1.10", result.PlatformVersion)
}

func TestDotNetCoreDetectorExplicitProject(t *testing.T) {
	files := map[string]string{"a/A.csproj": webProject, "b/B.csproj": webProject}
	result, err := NewDotNetCoreDetector().Detect(context.Background(), &Context{
		SourceRepo: repoWith(files),
		Project:    "b/B.csproj",
	})
	require.NoError(t, err)
	assert.Equal(t, "b/B.csproj", result.ProjectFile)

	_, err = NewDotNetCoreDetector().Detect(context.Background(), &Context{
		SourceRepo: repoWith(files),
		Project:    "c/C.csproj",
	})
	assert.Equal(t, oryxerr.ExitFailure, oryxerr.ExitCode(err))
	assert.Contains(t, err.Error(), "c/C.csproj")
}

func TestDotNetCoreDetectorMalformedProject(t *testing.T) {
	_, err := NewDotNetCoreDetector().Detect(context.Background(), &Context{
		SourceRepo: repoWith(map[string]string{"App.csproj": "<Project"}),
	})
	var parseErr *oryxerr.FailedToParseFileError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "App.csproj", parseErr.Path)
}

func TestPhpDetector(t *testing.T) {
	d := NewPhpDetector()
	assert.Nil(t, detect(t, d, map[string]string{"index.php": ""}))

	result := detect(t, d, map[string]string{"composer.json": `{"require":{"php":">=7.1"}}`})
	assert.Equal(t, ">=7.1", result.PlatformVersion)

	result = detect(t, d, map[string]string{"composer.json": `{"require":{"php":"^5.6|^7.0"}}`})
	assert.Equal(t, "^5.6||^7.0", result.PlatformVersion)

	result = detect(t, d, map[string]string{"composer.json": `{"require":{"php":["7"]}}`})
	require.NotNil(t, result)
	assert.Empty(t, result.PlatformVersion)
}

func TestRubyDetector(t *testing.T) {
	d := NewRubyDetector()
	assert.Nil(t, detect(t, d, map[string]string{"README.md": ""}))
	assert.Nil(t, detect(t, d, map[string]string{"lib/helper.rb": ""}))

	result := detect(t, d, map[string]string{"main.rb": "puts 'hi'\n"})
	require.NotNil(t, result)
	assert.Equal(t, RubyPlatform, result.Platform)
	assert.Empty(t, result.PlatformVersion)

	result = detect(t, d, map[string]string{"Gemfile": "source 'https://rubygems.org'\nruby '2.7.1'\n"})
	assert.Equal(t, "2.7.1", result.PlatformVersion)

	result = detect(t, d, map[string]string{"Gemfile.lock": "GEM\n\nRUBY VERSION\n   ruby 2.6.6p146\n"})
	assert.Equal(t, "2.6.6", result.PlatformVersion)
}

func TestHugoDetector(t *testing.T) {
	d := NewHugoDetector()

	assert.Nil(t, detect(t, d, map[string]string{"config.toml": `baseURL = "https://example.org/"`}))
	assert.Nil(t, detect(t, d, map[string]string{"config.json": `{"name":"x"}`, "content/a.md": ""}))

	result := detect(t, d, map[string]string{
		"config.toml":  "baseURL = \"https://example.org/\"\ntitle = \"Site\"\n",
		"content/a.md": "# hi",
	})
	require.NotNil(t, result)
	assert.Equal(t, HugoPlatform, result.Platform)

	result = detect(t, d, map[string]string{"config.yaml": "title: Site\n", "archetypes/default.md": ""})
	assert.NotNil(t, result)
}

func TestJavaDetector(t *testing.T) {
	d := NewJavaDetector()
	assert.Nil(t, detect(t, d, map[string]string{"README.md": ""}))

	result := detect(t, d, map[string]string{"pom.xml": `<project><properties><java.version>11</java.version></properties></project>`})
	assert.Equal(t, "11", result.PlatformVersion)

	result = detect(t, d, map[string]string{"build.gradle": "sourceCompatibility = '1.8'\n"})
	assert.Equal(t, "1.8", result.PlatformVersion)

	result = detect(t, d, map[string]string{"pom.xml": `<project><properties><maven.compiler.source>8</maven.compiler.source></properties></project>`})
	assert.Equal(t, "1.8", result.PlatformVersion)

	result = detect(t, d, map[string]string{"src/main/java/App.java": "class App {}"})
	require.NotNil(t, result)
	assert.Empty(t, result.PlatformVersion)
}

type countingDetector struct {
	calls int
}

func (c *countingDetector) Name() string { return "counting" }

func (c *countingDetector) Detect(_ context.Context, dctx *Context) (*Result, error) {
	c.calls++
	return &Result{Platform: "counting", PlatformVersion: dctx.SourceRepo.RootPath()}, nil
}

func TestCacheIsKeyedByRepo(t *testing.T) {
	d := &countingDetector{}
	cache := NewCache()
	ctx := context.Background()

	a := &Context{SourceRepo: sourcerepo.NewFS("/a", fstest.MapFS{}), Cache: cache}
	b := &Context{SourceRepo: sourcerepo.NewFS("/b", fstest.MapFS{}), Cache: cache}

	r1, err := Detect(ctx, d, a)
	require.NoError(t, err)
	r2, err := Detect(ctx, d, a)
	require.NoError(t, err)
	r3, err := Detect(ctx, d, b)
	require.NoError(t, err)

	assert.Equal(t, 2, d.calls)
	assert.Equal(t, "/a", r1.PlatformVersion)
	assert.Equal(t, "/a", r2.PlatformVersion)
	assert.Equal(t, "/b", r3.PlatformVersion)
	assert.Equal(t, 2, cache.Len())
}

func TestDetectAllKeepsRegistrationOrder(t *testing.T) {
	repo := repoWith(map[string]string{
		"package.json":     `{}`,
		"requirements.txt": "",
		"app.py":           "",
		"composer.json":    `{}`,
	})
	results, err := NewDefaultDetector().DetectAll(context.Background(), &Context{SourceRepo: repo, Cache: NewCache()})
	require.NoError(t, err)

	var names []string
	for _, r := range results {
		names = append(names, r.Platform)
	}
	assert.Equal(t, []string{NodePlatform, PythonPlatform, PhpPlatform}, names)
}
