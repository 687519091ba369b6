package buildscript

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/Microsoft/Oryx-sub000/pkg/platforms"
	"github.com/Microsoft/Oryx-sub000/pkg/textspan"
)

// Manifest and output file names.
const (
	ManifestFileName         = "oryx-manifest.toml"
	CompressedOutputFileName = "oryx_output.tar.gz"
)

// Manifest keys written for every build.
const (
	OperationIDManifestKey = "operationId"
	PlatformsManifestKey   = "platforms"
	ZipAllOutputProp       = "zip_all_output"
)

//go:embed templates/build.sh.tpl
var templateFS embed.FS

var buildTemplate = template.Must(template.ParseFS(templateFS, "templates/build.sh.tpl"))

type scriptData struct {
	IntermediateExcludes     []string
	Installers               []string
	PreBuild                 string
	PreBuildSpan             textspan.TextSpan
	Snippets                 []string
	PostBuild                string
	PostBuildSpan            textspan.TextSpan
	CopyToDestination        bool
	ZipAllOutput             bool
	OutputExcludes           []string
	CompressedOutputFileName string
	ManifestDir              string
	ManifestFileName         string
	ManifestLines            []string
}

func (g *Generator) compose(bctx *Context, pctx *platforms.Context, snippets []platformSnippet, operationID string) (string, error) {
	data := scriptData{
		PreBuild:                 userCommand(bctx.PreBuildScriptPath, bctx.PreBuildCommand),
		PreBuildSpan:             textspan.PreBuild,
		PostBuild:                userCommand(bctx.PostBuildScriptPath, bctx.PostBuildCommand),
		PostBuildSpan:            textspan.PostBuild,
		ZipAllOutput:             pctx.PropertyIsTrue(ZipAllOutputProp),
		CompressedOutputFileName: CompressedOutputFileName,
		ManifestDir:              shellQuote(bctx.ManifestDir),
		ManifestFileName:         ManifestFileName,
	}

	var intermediateExcludes, outputExcludes []string
	installed := make(map[string]bool)
	manifest := make(map[string]string)
	var names []string
	for _, ps := range snippets {
		p := ps.result.Platform
		version := ps.result.Detected.PlatformVersion
		names = append(names, p.Name()+"="+version)

		intermediateExcludes = append(intermediateExcludes, p.DirectoriesToExcludeFromCopyToIntermediateDir(pctx)...)
		outputExcludes = append(outputExcludes, p.DirectoriesToExcludeFromCopyToBuildOutputDir(pctx, ps.result.Detected)...)

		if installer := p.InstallerSnippet(pctx, version); installer != "" && !installed[p.Name()] {
			installed[p.Name()] = true
			data.Installers = append(data.Installers, installer)
		}

		data.Snippets = append(data.Snippets, strings.TrimRight(ps.snippet.BashBuildScriptSnippet, "\n"))
		if !ps.snippet.SkipCopyToDestination {
			data.CopyToDestination = true
		}
		// Later platforms win on key collisions.
		for k, v := range ps.snippet.BuildProperties {
			manifest[k] = v
		}
	}

	if !bctx.HasDestinationDir() {
		data.CopyToDestination = false
	}
	if data.ZipAllOutput && data.CopyToDestination {
		manifest[platforms.ZipAllOutputManifestKey] = "true"
	}
	manifest[OperationIDManifestKey] = operationID
	manifest[PlatformsManifestKey] = strings.Join(names, ",")

	data.IntermediateExcludes = dedupe(intermediateExcludes)
	data.OutputExcludes = dedupe(outputExcludes)
	data.ManifestLines = ManifestLines(manifest)

	var buf bytes.Buffer
	if err := buildTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render build script: %w", err)
	}
	g.logger.Debug("Generated build script for %s", strings.Join(names, ", "))
	return buf.String(), nil
}

// ManifestLines renders properties as key="value" TOML lines, sorted by
// key and escaped for a single-quoted bash string.
func ManifestLines(props map[string]string) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		line := fmt.Sprintf(`%s="%s"`, k, tomlEscape(props[k]))
		lines = append(lines, strings.ReplaceAll(line, `'`, `'\''`))
	}
	return lines
}

func tomlEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return r.Replace(s)
}

// userCommand returns the pre- or post-build step. A script path wins over
// an inline command.
func userCommand(scriptPath, command string) string {
	if scriptPath = strings.TrimSpace(scriptPath); scriptPath != "" {
		return shellQuote(scriptPath)
	}
	return strings.TrimSpace(command)
}

func shellQuote(s string) string {
	if s == "" {
		return `""`
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
