package platforms

import (
	"context"

	"github.com/Microsoft/Oryx-sub000/pkg/detector"
	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

// PHP defaults and manifest keys.
const (
	PhpDefaultVersion     = "7.3.5"
	ComposerVersion       = "1.8.4"
	PhpVersionManifestKey = "phpVersion"
)

// PhpSupportedVersions is the fallback version list.
var PhpSupportedVersions = []string{"5.6.40", "7.0.33", "7.2.18", "7.3.5"}

// PhpPlatform installs composer dependencies.
type PhpPlatform struct {
	*base
	composer *Installer
}

// NewPhpPlatform creates the PHP platform.
func NewPhpPlatform(opts Options) *PhpPlatform {
	return &PhpPlatform{
		base: &base{
			name:          detector.PhpPlatform,
			detector:      detector.NewPhpDetector(),
			provider:      opts.provider(detector.PhpPlatform, "php", PhpSupportedVersions, PhpDefaultVersion),
			installer:     newInstaller(detector.PhpPlatform, "php", opts),
			multiPlatform: true,
			logger:        logx.NewLogger("php-platform"),
		},
		composer: newInstaller("php-composer", "php-composer", opts),
	}
}

// GenerateSnippet runs composer install when composer.json exists.
func (p *PhpPlatform) GenerateSnippet(_ context.Context, pctx *Context, detected *detector.Result) (*Snippet, error) {
	script, err := render("php.sh.tpl", struct {
		BinDir             string
		ComposerDir        string
		ComposerFileExists bool
	}{
		BinDir:             p.binDir(detected.PlatformVersion, "bin"),
		ComposerDir:        p.composer.InstallDir(ComposerVersion),
		ComposerFileExists: pctx.Repo.SourceRepo.FileExists(detector.ComposerFileName),
	})
	if err != nil {
		return nil, err
	}
	return &Snippet{
		BashBuildScriptSnippet: script,
		BuildProperties:        map[string]string{PhpVersionManifestKey: detected.PlatformVersion},
	}, nil
}

// InstallerSnippet installs PHP and, when missing, composer.
func (p *PhpPlatform) InstallerSnippet(pctx *Context, version string) string {
	snippet := p.base.InstallerSnippet(pctx, version)
	if pctx == nil || !pctx.EnableDynamicInstall || p.composer.IsVersionInstalled(ComposerVersion) {
		return snippet
	}
	composer, err := p.composer.Snippet(ComposerVersion)
	if err != nil {
		p.logger.Error("Failed to render composer installer: %v", err)
		return snippet
	}
	if snippet == "" {
		return composer
	}
	return snippet + "\n" + composer
}

// ToolsUsed reports php and composer versions.
func (p *PhpPlatform) ToolsUsed(version string) map[string]string {
	return map[string]string{"php": version, "composer": ComposerVersion}
}
