package platforms

import (
	"context"

	"github.com/Microsoft/Oryx-sub000/pkg/detector"
	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

// Hugo defaults and manifest keys.
const (
	HugoDefaultVersion     = "0.59.1"
	HugoVersionManifestKey = "hugoVersion"
)

// HugoPlatform builds Hugo static sites.
type HugoPlatform struct {
	*base
}

// NewHugoPlatform creates the Hugo platform.
func NewHugoPlatform(opts Options) *HugoPlatform {
	return &HugoPlatform{base: &base{
		name:          detector.HugoPlatform,
		detector:      detector.NewHugoDetector(),
		provider:      opts.provider(detector.HugoPlatform, "hugo", []string{HugoDefaultVersion}, HugoDefaultVersion),
		installer:     newInstaller(detector.HugoPlatform, "hugo", opts),
		multiPlatform: true,
		logger:        logx.NewLogger("hugo-platform"),
	}}
}

// GenerateSnippet runs hugo in the source directory.
func (p *HugoPlatform) GenerateSnippet(_ context.Context, _ *Context, detected *detector.Result) (*Snippet, error) {
	script, err := render("hugo.sh.tpl", struct{ BinDir string }{
		BinDir: p.binDir(detected.PlatformVersion, ""),
	})
	if err != nil {
		return nil, err
	}
	return &Snippet{
		BashBuildScriptSnippet: script,
		BuildProperties:        map[string]string{HugoVersionManifestKey: detected.PlatformVersion},
	}, nil
}
