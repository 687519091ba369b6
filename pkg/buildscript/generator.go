// Package buildscript selects the platforms a repo is built with and
// composes their snippets into one bash build script.
package buildscript

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Microsoft/Oryx-sub000/pkg/checkers"
	"github.com/Microsoft/Oryx-sub000/pkg/detector"
	"github.com/Microsoft/Oryx-sub000/pkg/logx"
	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
	"github.com/Microsoft/Oryx-sub000/pkg/platforms"
)

// PlatformResult pairs a platform with what was detected or requested for it.
type PlatformResult struct {
	Platform platforms.Platform
	Detected *detector.Result
}

// Generator builds bash scripts from the registered platforms.
type Generator struct {
	registry *platforms.Registry
	checkers []checkers.Registration
	logger   *logx.Logger
	newID    func() string
}

// NewGenerator creates a generator over registry. Checkers run only for
// platforms selected by a build.
func NewGenerator(registry *platforms.Registry, regs []checkers.Registration) *Generator {
	return &Generator{
		registry: registry,
		checkers: regs,
		logger:   logx.NewLogger("build-script-generator"),
		newID:    func() string { return uuid.New().String() },
	}
}

// GetCompatiblePlatforms returns the platforms the build would use, each
// with a resolved version, in registration order.
func (g *Generator) GetCompatiblePlatforms(ctx context.Context, bctx *Context) ([]PlatformResult, error) {
	pctx := bctx.PlatformContext()
	enabled := g.registry.Enabled(pctx)

	var (
		supplied       platforms.Platform
		suppliedResult *detector.Result
	)
	if bctx.Language != "" {
		for _, p := range enabled {
			if strings.EqualFold(p.Name(), bctx.Language) {
				supplied = p
				break
			}
		}
		if supplied == nil {
			return nil, oryxerr.NewUnsupportedLanguage("'%s' platform is not supported. Supported platforms are: %s",
				bctx.Language, strings.Join(g.registry.EnabledNames(pctx), ", "))
		}

		var err error
		suppliedResult, err = g.resolveSupplied(ctx, pctx, supplied, bctx.LanguageVersion)
		if err != nil {
			return nil, err
		}
		if !bctx.EnableMultiPlatformBuild {
			return []PlatformResult{{Platform: supplied, Detected: suppliedResult}}, nil
		}
	}

	var results []PlatformResult
	for _, p := range enabled {
		if p == supplied {
			results = append(results, PlatformResult{Platform: p, Detected: suppliedResult})
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		detected, err := p.Detect(ctx, pctx)
		if err != nil {
			return nil, err
		}
		if detected == nil {
			continue
		}
		if detected.PlatformVersion == "" {
			v, err := p.ResolveVersion(ctx, "")
			if err != nil {
				return nil, err
			}
			detected.PlatformVersion = v
		}
		g.logger.Debug("Detected platform %s version %s", p.Name(), detected.PlatformVersion)
		results = append(results, PlatformResult{Platform: p, Detected: detected})
	}
	return results, nil
}

// resolveSupplied pins the caller's platform. A supplied version is
// resolved without running detection.
func (g *Generator) resolveSupplied(ctx context.Context, pctx *platforms.Context, p platforms.Platform, version string) (*detector.Result, error) {
	if version != "" {
		resolved, err := p.ResolveVersion(ctx, version)
		if err != nil {
			return nil, err
		}
		return &detector.Result{Platform: p.Name(), PlatformVersion: resolved}, nil
	}

	detected, err := p.Detect(ctx, pctx)
	if err != nil {
		return nil, err
	}
	if detected == nil || detected.PlatformVersion == "" {
		return nil, oryxerr.NewUnsupportedVersion(p.Name(), "",
			"Couldn't detect a version for the platform '%s' in the repo.", p.Name())
	}
	return detected, nil
}

// platformSnippet is a snippet with the platform that produced it.
type platformSnippet struct {
	result  PlatformResult
	snippet *platforms.Snippet
}

// GeneratedScript is a build script and the platforms whose snippets it runs.
type GeneratedScript struct {
	Script    string
	Platforms []PlatformResult
}

// GenerateBashScript returns the build script for bctx. Checker messages
// are appended to sink even when generation fails after selection.
func (g *Generator) GenerateBashScript(ctx context.Context, bctx *Context, sink *[]checkers.Message) (string, error) {
	generated, err := g.Generate(ctx, bctx, sink)
	if err != nil {
		return "", err
	}
	return generated.Script, nil
}

// Generate selects the platforms for bctx once and composes their script.
func (g *Generator) Generate(ctx context.Context, bctx *Context, sink *[]checkers.Message) (*GeneratedScript, error) {
	if bctx.SourceRepo == nil {
		return nil, fmt.Errorf("source repo is required")
	}
	pctx := bctx.PlatformContext()

	candidates, err := g.GetCompatiblePlatforms(ctx, bctx)
	if err != nil {
		return nil, err
	}

	if bctx.EnableCheckers {
		defer g.runCheckers(ctx, bctx, candidates, sink)
	}

	snippets, err := g.buildSnippets(ctx, bctx, pctx, candidates)
	if err != nil {
		return nil, err
	}
	if len(snippets) == 0 {
		g.logger.Error("No platform could build the repo")
		return nil, oryxerr.NewUnsupportedLanguage("Could not detect the language from repo.")
	}

	operationID := bctx.OperationID
	if operationID == "" {
		operationID = g.newID()
	}
	script, err := g.compose(bctx, pctx, snippets, operationID)
	if err != nil {
		return nil, err
	}

	selected := make([]PlatformResult, 0, len(snippets))
	for _, s := range snippets {
		selected = append(selected, s.result)
	}
	return &GeneratedScript{Script: script, Platforms: selected}, nil
}

func (g *Generator) buildSnippets(ctx context.Context, bctx *Context, pctx *platforms.Context, candidates []PlatformResult) ([]platformSnippet, error) {
	var snippets []platformSnippet
	for _, c := range candidates {
		supplied := bctx.Language != "" && strings.EqualFold(c.Platform.Name(), bctx.Language)
		// Opting out only matters when another platform is building too.
		if !supplied && len(candidates) > 1 && !c.Platform.IsEnabledForMultiPlatformBuild(pctx) {
			g.logger.Info("Skipping %s: it does not take part in multi-platform builds", c.Platform.Name())
			continue
		}

		snippet, err := c.Platform.GenerateSnippet(ctx, pctx, c.Detected)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s build snippet: %w", c.Platform.Name(), err)
		}
		if snippet == nil {
			g.logger.Info("Platform %s declined to build the repo", c.Platform.Name())
			continue
		}
		snippets = append(snippets, platformSnippet{result: c, snippet: snippet})
	}
	return snippets, nil
}

func (g *Generator) runCheckers(ctx context.Context, bctx *Context, candidates []PlatformResult, sink *[]checkers.Message) {
	if sink == nil || len(candidates) == 0 {
		return
	}
	names := make([]string, 0, len(candidates))
	tools := make(map[string]string)
	for _, c := range candidates {
		names = append(names, c.Platform.Name())
		for tool, v := range c.Platform.ToolsUsed(c.Detected.PlatformVersion) {
			tools[tool] = v
		}
	}
	*sink = append(*sink, checkers.Run(ctx, g.checkers, names, bctx.SourceRepo, tools)...)
}
