package platforms

import (
	"context"

	"github.com/Microsoft/Oryx-sub000/pkg/detector"
	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

// Ruby defaults and manifest keys.
const (
	RubyDefaultVersion     = "2.7.1"
	RubyVersionManifestKey = "rubyVersion"
)

// RubySupportedVersions is the fallback version list.
var RubySupportedVersions = []string{"2.5.8", "2.6.6", "2.7.1"}

// RubyPlatform installs gems with bundler.
type RubyPlatform struct {
	*base
}

// NewRubyPlatform creates the Ruby platform.
func NewRubyPlatform(opts Options) *RubyPlatform {
	return &RubyPlatform{base: &base{
		name:          detector.RubyPlatform,
		detector:      detector.NewRubyDetector(),
		provider:      opts.provider(detector.RubyPlatform, "ruby", RubySupportedVersions, RubyDefaultVersion),
		installer:     newInstaller(detector.RubyPlatform, "ruby", opts),
		multiPlatform: true,
		logger:        logx.NewLogger("ruby-platform"),
	}}
}

// GenerateSnippet runs bundle install when a Gemfile exists.
func (p *RubyPlatform) GenerateSnippet(_ context.Context, pctx *Context, detected *detector.Result) (*Snippet, error) {
	script, err := render("ruby.sh.tpl", struct {
		BinDir     string
		UseBundler bool
	}{
		BinDir:     p.binDir(detected.PlatformVersion, "bin"),
		UseBundler: pctx.Repo.SourceRepo.FileExists("Gemfile"),
	})
	if err != nil {
		return nil, err
	}
	return &Snippet{
		BashBuildScriptSnippet: script,
		BuildProperties:        map[string]string{RubyVersionManifestKey: detected.PlatformVersion},
	}, nil
}

// DirectoriesToExcludeFromCopyToIntermediateDir skips vendored gems.
func (p *RubyPlatform) DirectoriesToExcludeFromCopyToIntermediateDir(_ *Context) []string {
	return []string{"vendor/bundle"}
}
