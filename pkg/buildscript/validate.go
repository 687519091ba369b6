package buildscript

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
	"github.com/Microsoft/Oryx-sub000/pkg/utils"
)

// ValidateDirectories checks the directories of a build before anything
// on disk is touched.
func ValidateDirectories(source, intermediate, destination string) error {
	info, err := os.Stat(source)
	if err != nil || !info.IsDir() {
		return oryxerr.NewInvalidUsage("Could not find the source directory '%s'.", source)
	}

	if intermediate != "" {
		if utils.AreSameDirectories(intermediate, source) || utils.IsSubDirectory(absPath(intermediate), absPath(source)) {
			return oryxerr.NewInvalidUsage("Intermediate directory '%s' cannot be a sub-directory of source directory '%s'.",
				intermediate, source)
		}
	}

	if destination != "" {
		if info, err := os.Stat(destination); err == nil && !info.IsDir() {
			return oryxerr.NewInvalidUsage("Destination '%s' is not a directory.", destination)
		}
	}
	return nil
}

// Validate checks the option combinations of bctx.
func (c *Context) Validate() error {
	if strings.TrimSpace(c.LanguageVersion) != "" && strings.TrimSpace(c.Language) == "" {
		return oryxerr.NewInvalidUsage("Cannot use language version without specifying language name also.")
	}
	if strings.TrimSpace(c.PreBuildCommand) != "" && strings.TrimSpace(c.PreBuildScriptPath) != "" {
		return oryxerr.NewInvalidUsage("Only one of pre-build command or pre-build script path can be specified.")
	}
	if strings.TrimSpace(c.PostBuildCommand) != "" && strings.TrimSpace(c.PostBuildScriptPath) != "" {
		return oryxerr.NewInvalidUsage("Only one of post-build command or post-build script path can be specified.")
	}
	if c.SourceRepo == nil {
		return oryxerr.NewInvalidUsage("A source directory is required.")
	}
	return ValidateDirectories(c.SourceRepo.RootPath(), c.IntermediateDir, c.DestinationDir)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
