// Package dockerfiles renders the two-stage Dockerfile that builds an app
// in the build image and runs it in the matching runtime image.
package dockerfiles

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/Microsoft/Oryx-sub000/pkg/buildscript"
	"github.com/Microsoft/Oryx-sub000/pkg/detector"
	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
)

// Build image tags.
const (
	SlimBuildTag   = "slim"
	LatestBuildTag = "latest"
)

//go:embed app.dockerfile.tpl
var appDockerfile string

var appTemplate = template.Must(template.New("app.dockerfile").Parse(appDockerfile))

// slimPlatformVersions lists the version prefixes the slim build image carries.
var slimPlatformVersions = map[string][]string{
	detector.DotNetCorePlatform: {"2.1"},
	detector.NodePlatform:       {"8.16", "10.16"},
	detector.PythonPlatform:     {"3.7"},
}

// runtimeImages maps platform names to runtime image names where they differ.
var runtimeImages = map[string]string{
	detector.DotNetCorePlatform: "dotnetcore",
}

// PlatformSource selects the platforms an app is built with.
type PlatformSource interface {
	GetCompatiblePlatforms(ctx context.Context, bctx *buildscript.Context) ([]buildscript.PlatformResult, error)
}

// Generator renders Dockerfiles for detected apps.
type Generator struct {
	platforms PlatformSource
}

// NewGenerator creates a generator over a platform source.
func NewGenerator(platforms PlatformSource) *Generator {
	return &Generator{platforms: platforms}
}

type dockerfileData struct {
	RuntimeImage string
	RuntimeTag   string
	BuildTag     string
}

// GenerateDockerfile returns the Dockerfile for the app in bctx. The build
// image is slim only when every platform version is available there; the
// runtime image follows the last selected platform.
func (g *Generator) GenerateDockerfile(ctx context.Context, bctx *buildscript.Context) (string, error) {
	results, err := g.platforms.GetCompatiblePlatforms(ctx, bctx)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", oryxerr.NewUnsupportedLanguage("Could not detect the language from repo.")
	}

	data := dockerfileData{BuildTag: SlimBuildTag}
	for _, r := range results {
		name := r.Platform.Name()
		version := r.Detected.PlatformVersion
		if !isSlimVersion(name, version) {
			data.BuildTag = LatestBuildTag
		}
		data.RuntimeImage = name
		if image, ok := runtimeImages[name]; ok {
			data.RuntimeImage = image
		}
		data.RuntimeTag = RuntimeTag(version)
	}

	var buf bytes.Buffer
	if err := appTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render Dockerfile: %w", err)
	}
	return buf.String(), nil
}

func isSlimVersion(platform, version string) bool {
	for _, prefix := range slimPlatformVersions[platform] {
		if version == prefix || strings.HasPrefix(version, prefix+".") {
			return true
		}
	}
	return false
}

// RuntimeTag shortens a full version to the runtime image tag: versions
// with fewer than three parts are used as-is, a zero minor version yields
// the major version, and anything else yields major.minor.
func RuntimeTag(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) < 3 {
		return version
	}
	if parts[1] == "0" {
		return parts[0]
	}
	return parts[0] + "." + parts[1]
}
