// Package runscript produces the startup script of a built app by running
// the platform's startup command generator from the image.
package runscript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Microsoft/Oryx-sub000/pkg/exec"
	"github.com/Microsoft/Oryx-sub000/pkg/logx"
	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
)

// Defaults for locating and running startup command generators.
const (
	DefaultToolDir    = "/opt/startupcmdgen"
	DefaultOutputPath = "/tmp/run.sh"
	DefaultTimeout    = 10 * time.Second
)

// PlatformLookup reports whether a platform name is known.
type PlatformLookup interface {
	HasPlatform(name string) (canonical string, ok bool)
}

// Generator runs <ToolDir>/<platform> to write a startup script.
type Generator struct {
	Platforms PlatformLookup
	Exec      exec.Executor
	ToolDir   string
	Timeout   time.Duration
	logger    *logx.Logger
}

// NewGenerator creates a generator with the default tool directory and timeout.
func NewGenerator(platforms PlatformLookup, ex exec.Executor) *Generator {
	if ex == nil {
		ex = exec.NewLocalExec()
	}
	return &Generator{
		Platforms: platforms,
		Exec:      ex,
		ToolDir:   DefaultToolDir,
		Timeout:   DefaultTimeout,
		logger:    logx.NewLogger("run-script-generator"),
	}
}

// Generate writes the startup script for the app at appPath to outputPath
// and returns its content.
func (g *Generator) Generate(ctx context.Context, platform, appPath, outputPath string, extraArgs []string) (string, error) {
	name, ok := g.Platforms.HasPlatform(platform)
	if !ok {
		return "", oryxerr.NewUnsupportedLanguage("Platform '%s' is not supported.", platform)
	}
	if outputPath == "" {
		outputPath = DefaultOutputPath
	}

	tool := filepath.Join(g.ToolDir, name)
	args := append([]string{tool, "-appPath", appPath, "-output", outputPath}, extraArgs...)
	result, err := g.Exec.Run(ctx, args, &exec.Opts{Timeout: g.Timeout})
	if err != nil {
		return "", fmt.Errorf("failed to run %s: %w", tool, err)
	}
	if result.ExitCode != 0 {
		g.logger.Error("%s returned %d: %s", tool, result.ExitCode, strings.TrimSpace(result.Stderr))
		return "", fmt.Errorf("%s failed with exit code %d", tool, result.ExitCode)
	}

	script, err := os.ReadFile(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to read generated run script: %w", err)
	}
	return string(script), nil
}
