package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Microsoft/Oryx-sub000/pkg/buildscript"
	"github.com/Microsoft/Oryx-sub000/pkg/config"
	"github.com/Microsoft/Oryx-sub000/pkg/logx"
	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
	"github.com/Microsoft/Oryx-sub000/pkg/platforms"
	"github.com/Microsoft/Oryx-sub000/pkg/sourcerepo"
	"github.com/Microsoft/Oryx-sub000/pkg/versioncache"
	"github.com/Microsoft/Oryx-sub000/pkg/versionprovider"
)

// buildFlags are the options shared by build, build-script and dockerfile.
type buildFlags struct {
	language        string
	languageVersion string
	intermediateDir string
	destinationDir  string
	manifestDir     string
	properties      []string
	platformVersion []string
}

func (f *buildFlags) register(cmd *cobra.Command, withOutput bool) {
	cmd.Flags().StringVarP(&f.language, "platform", "l", "", "the platform to build with, e.g. 'nodejs'")
	cmd.Flags().StringVar(&f.languageVersion, "platform-version", "", "the version of the platform, e.g. '12' for nodejs")
	cmd.Flags().StringSliceVar(&f.platformVersion, "versions", nil, "per-platform version requests, e.g. python=3.8,nodejs=12")
	cmd.Flags().StringArrayVarP(&f.properties, "property", "p", nil, "additional build property as key=value (repeatable)")
	cmd.Flags().StringVar(&f.manifestDir, "manifest-dir", "", "directory to write oryx-manifest.toml to (default: the output directory)")
	if withOutput {
		cmd.Flags().StringVarP(&f.intermediateDir, "intermediate-dir", "i", "", "temporary directory the sources are copied to before building")
		cmd.Flags().StringVarP(&f.destinationDir, "output", "o", "", "the destination directory")
	}
}

// newBuildContext resolves the options for a build of sourceDir from the
// environment, build.env and flags, in that order of increasing precedence.
func newBuildContext(sourceDir string, f *buildFlags) (*buildscript.Context, *config.Options, error) {
	sourceDir, err := resolveDir(sourceDir)
	if err != nil {
		return nil, nil, err
	}

	opts, err := config.Load(sourceDir)
	if err != nil {
		return nil, nil, err
	}

	props, err := config.ParseProperties(f.properties)
	if err != nil {
		return nil, nil, oryxerr.NewInvalidUsage("%v", err)
	}

	versions := make(map[string]string, len(opts.PlatformVersions))
	for name, v := range opts.PlatformVersions {
		versions[name] = v
	}
	for _, pair := range f.platformVersion {
		name, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, nil, oryxerr.NewInvalidUsage("Invalid version request '%s'. Expected <platform>=<version>.", pair)
		}
		versions[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(v)
	}

	// The script runs from the source directory, so relative output paths
	// are resolved here against the working directory.
	var dirs [3]string
	for i, dir := range []string{f.destinationDir, f.intermediateDir, f.manifestDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if dirs[i], err = resolveDir(dir); err != nil {
			return nil, nil, err
		}
	}

	bctx := &buildscript.Context{
		SourceRepo:               sourcerepo.New(sourceDir),
		Language:                 strings.TrimSpace(f.language),
		LanguageVersion:          strings.TrimSpace(f.languageVersion),
		Versions:                 versions,
		Project:                  opts.Project,
		EnableMultiPlatformBuild: opts.EnableMultiPlatformBuild,
		EnableDynamicInstall:     opts.EnableDynamicInstall,
		EnableCheckers:           opts.EnableCheckers,
		DisabledPlatforms:        opts.DisabledPlatforms,
		Properties:               props,
		DestinationDir:           dirs[0],
		IntermediateDir:          dirs[1],
		ManifestDir:              dirs[2],
		PreBuildCommand:          opts.PreBuildCommand,
		PostBuildCommand:         opts.PostBuildCommand,
		PreBuildScriptPath:       opts.PreBuildScriptPath,
		PostBuildScriptPath:      opts.PostBuildScriptPath,
	}
	return bctx, opts, nil
}

// resolveDir returns the absolute form of dir, or the working directory
// when dir is empty.
func resolveDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	return abs, nil
}

// newRegistry creates the platform registry for opts. The returned func
// closes the version cache, if one was opened.
func newRegistry(opts *config.Options) (*platforms.Registry, func()) {
	regOpts := platforms.Options{
		EnableDynamicInstall: opts.EnableDynamicInstall,
		StorageBaseURL:       opts.SdkStorageBaseURL,
		InstallRoot:          opts.InstallRoot,
		DynamicInstallRoot:   opts.DynamicInstallRoot,
		DefaultVersions:      opts.DefaultVersions,
	}

	closeFn := func() {}
	if opts.EnableDynamicInstall && !opts.DisableVersionCache {
		if store := openVersionCache(opts.VersionCacheTTL); store != nil {
			regOpts.VersionCache = store
			closeFn = func() { _ = store.Close() }
		}
	}
	return platforms.NewRegistry(regOpts), closeFn
}

// openVersionCache opens the SDK listing cache. Failures disable caching.
func openVersionCache(ttl string) *versioncache.Store {
	logger := logx.NewLogger("cli")

	d, err := time.ParseDuration(ttl)
	if err != nil {
		logger.Warn("Invalid version cache TTL %q, using %s", ttl, versioncache.DefaultTTL)
		d = versioncache.DefaultTTL
	}
	path, err := versioncache.DefaultPath()
	if err != nil {
		logger.Warn("Version cache disabled: %v", err)
		return nil
	}
	store, err := versioncache.Open(path, d)
	if err != nil {
		logger.Warn("Version cache disabled: %v", err)
		return nil
	}
	if n, err := store.Purge(context.Background()); err != nil {
		logger.Warn("Failed to purge version cache: %v", err)
	} else if n > 0 {
		logger.Debug("Purged %d expired version cache entries", n)
	}
	return store
}

// versionInfo lists a platform's versions, tolerating storage errors.
func versionInfo(ctx context.Context, p platforms.Platform) (versionprovider.VersionInfo, error) {
	info, err := p.VersionInfo(ctx)
	if err != nil {
		return versionprovider.VersionInfo{}, fmt.Errorf("failed to get %s versions: %w", p.Name(), err)
	}
	return info, nil
}

// outputJSON writes data as indented JSON.
func outputJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// outputYAML writes data as YAML.
func outputYAML(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

// validateFormat checks an --output format value.
func validateFormat(format string, allowed ...string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	for _, a := range allowed {
		if format == a {
			return format, nil
		}
	}
	return "", oryxerr.NewInvalidUsage("Unsupported output format: '%s'. Supported output formats are: %s.",
		format, strings.Join(allowed, ", "))
}
