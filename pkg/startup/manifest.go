// Package startup generates the entrypoint scripts that run built apps,
// using the build manifest to find virtual environments and packages.
package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
)

// ManifestFileName is the build manifest written next to the build output.
const ManifestFileName = "oryx-manifest.toml"

// Manifest is the decoded build manifest.
type Manifest struct {
	// Exists is false when no manifest was found.
	Exists bool `toml:"-"`
	// Path is the manifest file that was read.
	Path string `toml:"-"`

	OperationID               string `toml:"operationId"`
	Platforms                 string `toml:"platforms"`
	StartupFileName           string `toml:"startupFileName"`
	ZipAllOutput              string `toml:"zipAllOutput"`
	VirtualEnvName            string `toml:"virtualEnvName"`
	PackageDir                string `toml:"packagedir"`
	CompressedVirtualEnvFile  string `toml:"compressedVirtualEnvFile"`
	StartupDllFileName        string `toml:"startupDllFileName"`
	CompressedNodeModulesFile string `toml:"compressedNodeModulesFile"`

	// Properties holds every key of the manifest.
	Properties map[string]string `toml:"-"`
}

// ReadManifest reads the manifest from manifestDir, or from appPath when
// manifestDir is empty. A missing manifest in appPath is not an error; a
// missing manifest in an explicit manifestDir is.
func ReadManifest(manifestDir, appPath string) (*Manifest, error) {
	var path string
	if manifestDir == "" {
		path = filepath.Join(appPath, ManifestFileName)
	} else {
		abs, err := filepath.Abs(manifestDir)
		if err != nil {
			return nil, oryxerr.NewInvalidUsage("Provided manifest file directory path '%s' is not valid.", manifestDir)
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			return nil, oryxerr.NewInvalidUsage("Provided manifest file directory path '%s' is not valid or does not exist.", manifestDir)
		}
		path = filepath.Join(abs, ManifestFileName)
		if _, err := os.Stat(path); err != nil {
			return nil, oryxerr.NewInvalidUsage("Could not find manifest file '%s' at '%s'.", ManifestFileName, abs)
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Manifest{Path: path, Properties: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(path, data)
}

// ParseManifest decodes manifest content read from path.
func ParseManifest(path string, data []byte) (*Manifest, error) {
	m := &Manifest{Exists: true, Path: path}
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, oryxerr.NewFailedToParseFile(path, err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, oryxerr.NewFailedToParseFile(path, err)
	}
	m.Properties = make(map[string]string, len(raw))
	for k, v := range raw {
		m.Properties[k] = fmt.Sprint(v)
	}
	return m, nil
}
