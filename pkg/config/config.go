// Package config resolves build options from defaults, the build.env file
// in the source directory and the process environment, in increasing
// order of precedence. Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Microsoft/Oryx-sub000/pkg/detector"
)

// BuildEnvFileName is the dotenv file read from the source directory.
const BuildEnvFileName = "build.env"

// Environment keys.
const (
	KeyEnableDynamicInstall     = "ENABLE_DYNAMIC_INSTALL"
	KeyEnableMultiPlatformBuild = "ENABLE_MULTIPLATFORM_BUILD"
	KeyDisableCheckers          = "DISABLE_CHECKERS"
	KeySdkStorageBaseURL        = "ORYX_SDK_STORAGE_BASE_URL"
	KeyPreBuildCommand          = "PRE_BUILD_COMMAND"
	KeyPostBuildCommand         = "POST_BUILD_COMMAND"
	KeyPreBuildScriptPath       = "PRE_BUILD_SCRIPT_PATH"
	KeyPostBuildScriptPath      = "POST_BUILD_SCRIPT_PATH"
	KeyProject                  = "PROJECT"
	KeyPreRunCommand            = "PRE_RUN_COMMAND"
	KeyMetricsFile              = "ORYX_METRICS_FILE"
	KeyVersionCacheTTL          = "ORYX_VERSION_CACHE_TTL"
	KeyDisableVersionCache      = "ORYX_DISABLE_VERSION_CACHE"
	KeyScmCommitID              = "SCM_COMMIT_ID"
	KeyInstallRoot              = "ORYX_INSTALL_ROOT"
	KeyDynamicInstallRoot       = "ORYX_DYNAMIC_INSTALL_ROOT"
)

// DefaultSdkStorageBaseURL is used for dynamic install when no storage URL is set.
const DefaultSdkStorageBaseURL = "https://oryxsdks.blob.core.windows.net"

// platformEnvPrefixes maps platform names to the prefix of their
// <PREFIX>_VERSION, <PREFIX>_DEFAULT_VERSION and DISABLE_<PREFIX>_BUILD keys.
var platformEnvPrefixes = map[string]string{
	detector.NodePlatform:       "NODE",
	detector.PythonPlatform:     "PYTHON",
	detector.DotNetCorePlatform: "DOTNET",
	detector.PhpPlatform:        "PHP",
	detector.RubyPlatform:       "RUBY",
	detector.HugoPlatform:       "HUGO",
	detector.JavaPlatform:       "JAVA",
}

// Options are the resolved build options.
type Options struct {
	EnableDynamicInstall     bool
	EnableMultiPlatformBuild bool
	EnableCheckers           bool
	SdkStorageBaseURL        string

	PreBuildCommand     string
	PostBuildCommand    string
	PreBuildScriptPath  string
	PostBuildScriptPath string
	PreRunCommand       string
	Project             string

	// PlatformVersions holds <PREFIX>_VERSION requests by platform name.
	PlatformVersions map[string]string
	// DefaultVersions holds <PREFIX>_DEFAULT_VERSION overrides by platform name.
	DefaultVersions map[string]string
	// DisabledPlatforms holds platforms turned off with DISABLE_<PREFIX>_BUILD.
	DisabledPlatforms map[string]bool

	MetricsFile         string
	VersionCacheTTL     string
	DisableVersionCache bool
	ScmCommitID         string
	InstallRoot         string
	DynamicInstallRoot  string

	// BuildEnvFile is the build.env that was read, if any.
	BuildEnvFile string
}

// Load resolves options for a build of sourceDir. A missing build.env is
// not an error; a malformed one is.
func Load(sourceDir string) (*Options, error) {
	v := newViper()

	if sourceDir != "" {
		path := filepath.Join(sourceDir, BuildEnvFileName)
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}

	return fromViper(v), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault(KeyEnableDynamicInstall, false)
	v.SetDefault(KeyEnableMultiPlatformBuild, false)
	v.SetDefault(KeyDisableCheckers, false)
	v.SetDefault(KeySdkStorageBaseURL, DefaultSdkStorageBaseURL)
	v.SetDefault(KeyDisableVersionCache, false)
	v.SetDefault(KeyVersionCacheTTL, "1h")
	return v
}

func fromViper(v *viper.Viper) *Options {
	opts := &Options{
		EnableDynamicInstall:     v.GetBool(KeyEnableDynamicInstall),
		EnableMultiPlatformBuild: v.GetBool(KeyEnableMultiPlatformBuild),
		EnableCheckers:           !v.GetBool(KeyDisableCheckers),
		SdkStorageBaseURL:        strings.TrimRight(strings.TrimSpace(v.GetString(KeySdkStorageBaseURL)), "/"),
		PreBuildCommand:          strings.TrimSpace(v.GetString(KeyPreBuildCommand)),
		PostBuildCommand:         strings.TrimSpace(v.GetString(KeyPostBuildCommand)),
		PreBuildScriptPath:       strings.TrimSpace(v.GetString(KeyPreBuildScriptPath)),
		PostBuildScriptPath:      strings.TrimSpace(v.GetString(KeyPostBuildScriptPath)),
		PreRunCommand:            strings.TrimSpace(v.GetString(KeyPreRunCommand)),
		Project:                  strings.TrimSpace(v.GetString(KeyProject)),
		PlatformVersions:         make(map[string]string),
		DefaultVersions:          make(map[string]string),
		DisabledPlatforms:        make(map[string]bool),
		MetricsFile:              strings.TrimSpace(v.GetString(KeyMetricsFile)),
		VersionCacheTTL:          strings.TrimSpace(v.GetString(KeyVersionCacheTTL)),
		DisableVersionCache:      v.GetBool(KeyDisableVersionCache),
		ScmCommitID:              strings.TrimSpace(v.GetString(KeyScmCommitID)),
		InstallRoot:              strings.TrimSpace(v.GetString(KeyInstallRoot)),
		DynamicInstallRoot:       strings.TrimSpace(v.GetString(KeyDynamicInstallRoot)),
		BuildEnvFile:             v.ConfigFileUsed(),
	}

	for platform, prefix := range platformEnvPrefixes {
		if version := strings.TrimSpace(v.GetString(prefix + "_VERSION")); version != "" {
			opts.PlatformVersions[platform] = version
		}
		if version := strings.TrimSpace(v.GetString(prefix + "_DEFAULT_VERSION")); version != "" {
			opts.DefaultVersions[platform] = version
		}
		if v.GetBool("DISABLE_" + prefix + "_BUILD") {
			opts.DisabledPlatforms[platform] = true
		}
	}
	return opts
}

// EnvPrefix returns the environment key prefix of a platform.
func EnvPrefix(platform string) string {
	if prefix, ok := platformEnvPrefixes[platform]; ok {
		return prefix
	}
	return strings.ToUpper(platform)
}

// ParseProperties parses key=value build properties. A property without
// "=" is an error.
func ParseProperties(pairs []string) (map[string]string, error) {
	props := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid property '%s': expected key=value", pair)
		}
		props[key] = strings.TrimSpace(strings.Trim(value, `"`))
	}
	return props, nil
}
