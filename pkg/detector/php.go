package detector

import (
	"context"
	"strings"

	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

// ComposerFileName identifies a PHP app.
const ComposerFileName = "composer.json"

// PhpDetector recognizes PHP apps by composer.json.
type PhpDetector struct {
	logger *logx.Logger
}

// NewPhpDetector creates a PHP detector.
func NewPhpDetector() *PhpDetector {
	return &PhpDetector{logger: logx.NewLogger("php-detector")}
}

// Name returns the platform name.
func (d *PhpDetector) Name() string { return PhpPlatform }

// Detect reports PHP when composer.json exists. The version hint is the
// caller's request, then require.php; a malformed require.php yields no hint.
func (d *PhpDetector) Detect(ctx context.Context, dctx *Context) (*Result, error) {
	repo := dctx.SourceRepo
	if !repo.FileExists(ComposerFileName) {
		logx.Debug(ctx, "detector", "%s not found in %s", ComposerFileName, repo.RootPath())
		return nil, nil
	}

	version := dctx.RequestedVersion(PhpPlatform)
	if version == "" {
		content, err := repo.ReadFile(ComposerFileName)
		if err != nil {
			return nil, err
		}
		constraint, state := LookupJSONString([]byte(content), "require", "php")
		switch state {
		case FieldPresent:
			version = NormalizeComposerConstraint(constraint)
		case FieldMalformed:
			d.logger.Warn("Exception caught while trying to deserialize %s: require.php is malformed", ComposerFileName)
		}
	}
	return &Result{Platform: PhpPlatform, PlatformVersion: version}, nil
}

// NormalizeComposerConstraint rewrites composer's single-bar alternation
// into the double-bar form understood by the semver resolver.
func NormalizeComposerConstraint(c string) string {
	c = strings.TrimSpace(c)
	if !strings.Contains(c, "|") || strings.Contains(c, "||") {
		return c
	}
	return strings.ReplaceAll(c, "|", "||")
}
