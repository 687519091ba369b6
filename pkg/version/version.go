// Package version provides build version information for the oryx binary.
// These variables are set at build time via ldflags.
// Example: go build -ldflags "-X github.com/Microsoft/Oryx-sub000/pkg/version.Version=v1.2.3".
package version

import "fmt"

//nolint:gochecknoglobals // These must be package-level vars for ldflags injection.
var (
	// Version is the semantic version (e.g., "v1.2.3" or "dev" for development builds).
	Version = "dev"

	// Commit is the git commit SHA of the build.
	Commit = "none"

	// Date is the build date in ISO format.
	Date = "unknown"
)

// String formats the build information on one line.
func String() string {
	return fmt.Sprintf("Version: %s, Commit: %s, Date: %s", Version, Commit, Date)
}
