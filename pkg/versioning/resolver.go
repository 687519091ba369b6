// Package versioning resolves requested platform versions, which may be
// partial ("3", "3.7") or ranges (">=8", "^7.2"), against a supported set.
package versioning

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
)

// Failure kinds returned by Resolve.
const (
	ReasonNotSupported = "not-supported"
	ReasonNoVersion    = "no-version"
)

var numericVersion = regexp.MustCompile(`^\d+(\.\d+){0,2}$`)

// ResolutionError describes why a version could not be resolved.
type ResolutionError struct {
	Platform  string
	Requested string
	Supported []string
	Reason    string
}

func (e *ResolutionError) Error() string {
	if e.Reason == ReasonNoVersion {
		return fmt.Sprintf("Couldn't detect a version for the platform '%s' in the repo.", e.Platform)
	}
	return fmt.Sprintf("The '%s' version '%s' is not supported. Supported versions are: %s",
		e.Platform, e.Requested, strings.Join(SortVersions(e.Supported), ", "))
}

// Result is the outcome of a resolution: exactly one of Version or Err is set.
type Result struct {
	Version string
	Err     *ResolutionError
}

// OK reports whether a version was resolved.
func (r Result) OK() bool {
	return r.Err == nil
}

// Unwrap converts the result into the error taxonomy used at the
// orchestration boundary.
func (r Result) Unwrap() (string, error) {
	if r.Err != nil {
		return "", &oryxerr.UnsupportedVersionError{
			Platform: r.Err.Platform,
			Version:  r.Err.Requested,
			Message:  r.Err.Error(),
		}
	}
	return r.Version, nil
}

// Resolve picks the supported version that satisfies requested. An empty
// request resolves the default; an empty default yields ReasonNoVersion.
func Resolve(platform, requested string, supported []string, defaultVersion string) Result {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		defaultVersion = strings.TrimSpace(defaultVersion)
		if defaultVersion == "" {
			return Result{Err: &ResolutionError{Platform: platform, Supported: supported, Reason: ReasonNoVersion}}
		}
		requested = defaultVersion
	}

	if v, ok := MaxSatisfying(requested, supported); ok {
		return Result{Version: v}
	}
	return Result{Err: &ResolutionError{
		Platform:  platform,
		Requested: requested,
		Supported: supported,
		Reason:    ReasonNotSupported,
	}}
}

type parsedVersion struct {
	raw string
	v   *semver.Version
}

func parseAll(supported []string) []parsedVersion {
	parsed := make([]parsedVersion, 0, len(supported))
	for _, raw := range supported {
		v, err := semver.NewVersion(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		parsed = append(parsed, parsedVersion{raw: raw, v: v})
	}
	return parsed
}

// MaxSatisfying returns the highest supported version matching requested.
// A full version must be present; a partial version matches by numeric
// prefix; anything else is treated as a range constraint.
func MaxSatisfying(requested string, supported []string) (string, bool) {
	requested = strings.TrimPrefix(strings.TrimSpace(requested), "v")

	for _, s := range supported {
		if s == requested {
			return s, true
		}
	}

	parsed := parseAll(supported)
	var best *parsedVersion
	consider := func(p *parsedVersion) {
		if best == nil || p.v.GreaterThan(best.v) {
			best = p
		}
	}

	if numericVersion.MatchString(requested) {
		prefix := strings.Split(requested, ".")
		want, err := semver.NewVersion(requested)
		if err != nil {
			return "", false
		}
		for i := range parsed {
			p := &parsed[i]
			if p.v.Prerelease() != "" {
				continue
			}
			if p.v.Major() != want.Major() {
				continue
			}
			if len(prefix) > 1 && p.v.Minor() != want.Minor() {
				continue
			}
			if len(prefix) > 2 && p.v.Patch() != want.Patch() {
				continue
			}
			consider(p)
		}
	} else {
		constraint, err := semver.NewConstraint(requested)
		if err != nil {
			return "", false
		}
		for i := range parsed {
			if constraint.Check(parsed[i].v) {
				consider(&parsed[i])
			}
		}
	}

	if best == nil {
		return "", false
	}
	return best.raw, true
}

// SortVersions returns a copy of versions sorted ascending by numeric
// component; entries that do not parse sort last, lexically.
func SortVersions(versions []string) []string {
	sorted := append([]string(nil), versions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		vi, erri := semver.NewVersion(sorted[i])
		vj, errj := semver.NewVersion(sorted[j])
		switch {
		case erri == nil && errj == nil:
			if vi.Equal(vj) {
				return sorted[i] < sorted[j]
			}
			return vi.LessThan(vj)
		case erri == nil:
			return true
		case errj == nil:
			return false
		default:
			return sorted[i] < sorted[j]
		}
	})
	return sorted
}

// CompareVersions returns -1, 0 or 1 comparing a to b numerically.
func CompareVersions(a, b string) (int, error) {
	va, err := semver.NewVersion(strings.TrimSpace(a))
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", a, err)
	}
	vb, err := semver.NewVersion(strings.TrimSpace(b))
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", b, err)
	}
	return va.Compare(vb), nil
}

// MajorMinor returns "X.Y" for a parseable version, or the input unchanged.
func MajorMinor(version string) string {
	v, err := semver.NewVersion(strings.TrimSpace(version))
	if err != nil {
		return version
	}
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
}
