package detector

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

// HugoConfigFiles are the site config locations probed, in order.
var HugoConfigFiles = []string{
	"config.toml", "config.yaml", "config.yml", "config.json",
	"hugo.toml", "hugo.yaml", "hugo.yml", "hugo.json",
	"config/_default/config.toml", "config/_default/config.yaml",
	"config/_default/config.yml", "config/_default/config.json",
}

// hugoConfigKeys are top-level keys only a Hugo site config carries together
// with a content tree.
var hugoConfigKeys = []string{"baseurl", "languagecode", "theme", "title", "archetypedir", "contentdir", "publishdir"}

// hugoSiteDirs are directories a Hugo site lays out next to its config.
var hugoSiteDirs = []string{"content", "archetypes", "layouts", "themes"}

// HugoDetector recognizes Hugo static sites.
type HugoDetector struct {
	logger *logx.Logger
}

// NewHugoDetector creates a Hugo detector.
func NewHugoDetector() *HugoDetector {
	return &HugoDetector{logger: logx.NewLogger("hugo-detector")}
}

// Name returns the platform name.
func (d *HugoDetector) Name() string { return HugoPlatform }

// Detect reports Hugo when a site config with Hugo keys sits next to a site
// directory. Hugo sites carry no version, so only the request is a hint.
func (d *HugoDetector) Detect(ctx context.Context, dctx *Context) (*Result, error) {
	repo := dctx.SourceRepo

	hasSiteDir := false
	for _, dir := range hugoSiteDirs {
		if repo.DirExists(dir) {
			hasSiteDir = true
			break
		}
	}
	if !hasSiteDir {
		logx.Debug(ctx, "detector", "no Hugo site directories in %s", repo.RootPath())
		return nil, nil
	}

	for _, file := range HugoConfigFiles {
		if !repo.FileExists(file) {
			continue
		}
		content, err := repo.ReadFile(file)
		if err != nil {
			return nil, err
		}
		keys, err := configKeys(file, []byte(content))
		if err != nil {
			d.logger.Warn("Ignoring unparseable site config %s: %v", file, err)
			continue
		}
		for _, k := range hugoConfigKeys {
			if keys[k] {
				return &Result{Platform: HugoPlatform, PlatformVersion: dctx.RequestedVersion(HugoPlatform)}, nil
			}
		}
	}
	return nil, nil
}

// configKeys returns the lower-cased top-level keys of a TOML, YAML or JSON document.
func configKeys(file string, data []byte) (map[string]bool, error) {
	doc := make(map[string]any)
	var err error
	switch strings.ToLower(path.Ext(file)) {
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	case ".json":
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(doc))
	for k := range doc {
		keys[strings.ToLower(k)] = true
	}
	return keys, nil
}
