package detector

import (
	"context"
	"regexp"

	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

var (
	gemfileRubyRE = regexp.MustCompile(`(?m)^\s*ruby\s+['"]([^'"]+)['"]`)
	lockRubyRE    = regexp.MustCompile(`RUBY VERSION\s+ruby\s+(\d+(?:\.\d+){0,2})`)
)

// RubyDetector recognizes Ruby apps by Gemfile, Gemfile.lock, config.ru or a
// root-level .rb file.
type RubyDetector struct {
	logger *logx.Logger
}

// NewRubyDetector creates a Ruby detector.
func NewRubyDetector() *RubyDetector {
	return &RubyDetector{logger: logx.NewLogger("ruby-detector")}
}

// Name returns the platform name.
func (d *RubyDetector) Name() string { return RubyPlatform }

// Detect reports Ruby and takes the version hint from the request, the
// Gemfile ruby directive, then the lock file.
func (d *RubyDetector) Detect(ctx context.Context, dctx *Context) (*Result, error) {
	repo := dctx.SourceRepo
	hasGemfile := repo.FileExists("Gemfile")
	hasLock := repo.FileExists("Gemfile.lock")
	if !hasGemfile && !hasLock && !repo.FileExists("config.ru") {
		rbFiles, err := repo.EnumerateFiles("*.rb", false)
		if err != nil {
			return nil, err
		}
		if len(rbFiles) == 0 {
			logx.Debug(ctx, "detector", "no Ruby markers in %s", repo.RootPath())
			return nil, nil
		}
	}

	version := dctx.RequestedVersion(RubyPlatform)
	if version == "" && hasGemfile {
		version = d.match(dctx, "Gemfile", gemfileRubyRE)
	}
	if version == "" && hasLock {
		version = d.match(dctx, "Gemfile.lock", lockRubyRE)
	}
	return &Result{Platform: RubyPlatform, PlatformVersion: version}, nil
}

func (d *RubyDetector) match(dctx *Context, file string, re *regexp.Regexp) string {
	content, err := dctx.SourceRepo.ReadFile(file)
	if err != nil {
		d.logger.Warn("Failed to read %s: %v", file, err)
		return ""
	}
	if m := re.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return ""
}
