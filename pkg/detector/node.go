package detector

import (
	"context"
	"encoding/json"

	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

// NodeDetector recognizes Node.js apps by their package manifests or a
// conventional entry point at the repo root.
type NodeDetector struct {
	logger *logx.Logger
}

// NodeMarkerFiles are root files whose presence identifies a Node.js app.
var NodeMarkerFiles = []string{"package.json", "package-lock.json", "yarn.lock", "server.js", "app.js"}

// NewNodeDetector creates a Node.js detector.
func NewNodeDetector() *NodeDetector {
	return &NodeDetector{logger: logx.NewLogger("node-detector")}
}

// Name returns the platform name.
func (d *NodeDetector) Name() string { return NodePlatform }

// Detect reports Node.js when any marker file exists. The version hint is
// the caller's request, then package.json engines.node.
func (d *NodeDetector) Detect(ctx context.Context, dctx *Context) (*Result, error) {
	repo := dctx.SourceRepo
	found := false
	for _, name := range NodeMarkerFiles {
		if repo.FileExists(name) {
			found = true
			break
		}
	}
	if !found {
		logx.Debug(ctx, "detector", "no Node.js marker files in %s", repo.RootPath())
		return nil, nil
	}

	version := dctx.RequestedVersion(NodePlatform)
	if version == "" && repo.FileExists("package.json") {
		content, err := repo.ReadFile("package.json")
		if err != nil {
			return nil, err
		}
		engine, state := LookupJSONString([]byte(content), "engines", "node")
		switch state {
		case FieldPresent:
			version = engine
		case FieldMalformed:
			d.logger.Warn("Ignoring engines.node in package.json: value is malformed")
		}
	}

	return &Result{Platform: NodePlatform, PlatformVersion: version}, nil
}

// PackageJSONScripts returns the scripts section of package.json, or nil when
// the file is missing or malformed.
func PackageJSONScripts(content string) map[string]string {
	var doc struct {
		Scripts map[string]any `json:"scripts"`
	}
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil
	}
	scripts := make(map[string]string, len(doc.Scripts))
	for k, v := range doc.Scripts {
		if s, ok := v.(string); ok {
			scripts[k] = s
		}
	}
	return scripts
}
