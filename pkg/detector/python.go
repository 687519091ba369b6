package detector

import (
	"context"
	"regexp"
	"strings"

	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

const (
	// RequirementsFileName must exist for a repo to be treated as Python.
	RequirementsFileName = "requirements.txt"
	// RuntimeFileName pins the interpreter as python-X[.Y[.Z]].
	RuntimeFileName = "runtime.txt"
)

var runtimeVersionRE = regexp.MustCompile(`^python-(\d+(?:\.\d+){0,2})$`)

// PythonDetector recognizes Python apps: a requirements file plus either a
// root-level .py file or a valid runtime pin.
type PythonDetector struct {
	logger *logx.Logger
}

// NewPythonDetector creates a Python detector.
func NewPythonDetector() *PythonDetector {
	return &PythonDetector{logger: logx.NewLogger("python-detector")}
}

// Name returns the platform name.
func (d *PythonDetector) Name() string { return PythonPlatform }

// Detect reports Python per the requirements/runtime rules. The caller's
// requested version overrides the runtime pin.
func (d *PythonDetector) Detect(ctx context.Context, dctx *Context) (*Result, error) {
	repo := dctx.SourceRepo
	if !repo.FileExists(RequirementsFileName) {
		logx.Debug(ctx, "detector", "%s not found in %s", RequirementsFileName, repo.RootPath())
		return nil, nil
	}

	pinned := d.runtimeVersion(dctx)
	if pinned == "" {
		pyFiles, err := repo.EnumerateFiles("*.py", false)
		if err != nil {
			return nil, err
		}
		if len(pyFiles) == 0 {
			logx.Debug(ctx, "detector", "no .py files or runtime pin at root of %s", repo.RootPath())
			return nil, nil
		}
	}

	version := dctx.RequestedVersion(PythonPlatform)
	if version == "" {
		version = pinned
	}
	return &Result{Platform: PythonPlatform, PlatformVersion: version}, nil
}

func (d *PythonDetector) runtimeVersion(dctx *Context) string {
	repo := dctx.SourceRepo
	if !repo.FileExists(RuntimeFileName) {
		return ""
	}
	content, err := repo.ReadFile(RuntimeFileName)
	if err != nil {
		d.logger.Warn("Failed to read %s: %v", RuntimeFileName, err)
		return ""
	}
	return ParseRuntimeVersion(content)
}

// ParseRuntimeVersion extracts X[.Y[.Z]] from runtime.txt content, or ""
// when the content does not follow the python-<version> form.
func ParseRuntimeVersion(content string) string {
	line := strings.TrimSpace(content)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	m := runtimeVersionRE.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}
