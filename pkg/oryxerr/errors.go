// Package oryxerr defines the user-facing error taxonomy of the build pipeline
// and the process exit codes each kind maps to.
package oryxerr

import (
	"errors"
	"fmt"
)

// Process exit codes. These are stable for scripting callers.
const (
	ExitSuccess                    = 0
	ExitFailure                    = 1
	ExitUnsupportedPlatform        = 2
	ExitUnsupportedPlatformVersion = 3
)

// UnsupportedLanguageError reports that no platform could be detected or that
// a requested platform is not registered or not enabled.
type UnsupportedLanguageError struct {
	Message string
}

func (e *UnsupportedLanguageError) Error() string { return e.Message }

// NewUnsupportedLanguage creates an UnsupportedLanguageError.
func NewUnsupportedLanguage(format string, args ...any) error {
	return &UnsupportedLanguageError{Message: fmt.Sprintf(format, args...)}
}

// UnsupportedVersionError reports a detected or supplied version that is not
// in the supported set, or a version that could not be determined at all.
type UnsupportedVersionError struct {
	Platform string
	Version  string
	Message  string
}

func (e *UnsupportedVersionError) Error() string { return e.Message }

// NewUnsupportedVersion creates an UnsupportedVersionError with a custom message.
func NewUnsupportedVersion(platform, version, format string, args ...any) error {
	return &UnsupportedVersionError{
		Platform: platform,
		Version:  version,
		Message:  fmt.Sprintf(format, args...),
	}
}

// InvalidUsageError reports an input error the user can fix, such as an
// ambiguous project selection or an invalid flag combination.
type InvalidUsageError struct {
	Message string
}

func (e *InvalidUsageError) Error() string { return e.Message }

// NewInvalidUsage creates an InvalidUsageError.
func NewInvalidUsage(format string, args ...any) error {
	return &InvalidUsageError{Message: fmt.Sprintf(format, args...)}
}

// FailedToParseFileError reports a malformed file whose contents are needed to
// resolve a platform or version.
type FailedToParseFileError struct {
	Path string
	Err  error
}

func (e *FailedToParseFileError) Error() string {
	return fmt.Sprintf("failed to parse file '%s': %v", e.Path, e.Err)
}

func (e *FailedToParseFileError) Unwrap() error { return e.Err }

// NewFailedToParseFile creates a FailedToParseFileError.
func NewFailedToParseFile(path string, err error) error {
	return &FailedToParseFileError{Path: path, Err: err}
}

// ExitCode maps an error to the process exit code reported to callers.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var langErr *UnsupportedLanguageError
	if errors.As(err, &langErr) {
		return ExitUnsupportedPlatform
	}

	var versionErr *UnsupportedVersionError
	if errors.As(err, &versionErr) {
		return ExitUnsupportedPlatformVersion
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return ExitFailure
}

// ExitError carries a subprocess exit code through the error chain unchanged.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("process exited with code %d", e.Code)
}

// IsUserError reports whether err is one of the user-facing error kinds whose
// message should be shown verbatim.
func IsUserError(err error) bool {
	var (
		langErr    *UnsupportedLanguageError
		versionErr *UnsupportedVersionError
		usageErr   *InvalidUsageError
		parseErr   *FailedToParseFileError
	)
	return errors.As(err, &langErr) || errors.As(err, &versionErr) ||
		errors.As(err, &usageErr) || errors.As(err, &parseErr)
}
