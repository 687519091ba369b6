package oryxerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generic", errors.New("boom"), ExitFailure},
		{"language", NewUnsupportedLanguage("Could not detect the language from repo."), ExitUnsupportedPlatform},
		{"version", NewUnsupportedVersion("node", "99", "bad version"), ExitUnsupportedPlatformVersion},
		{"wrapped version", fmt.Errorf("generate: %w", NewUnsupportedVersion("node", "99", "bad")), ExitUnsupportedPlatformVersion},
		{"usage", NewInvalidUsage("ambiguous"), ExitFailure},
		{"subprocess", fmt.Errorf("run: %w", &ExitError{Code: 42}), 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestFailedToParseFileUnwraps(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := NewFailedToParseFile("app.csproj", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to parse file 'app.csproj': unexpected EOF", err.Error())
	assert.True(t, IsUserError(err))
	assert.False(t, IsUserError(cause))
}

func TestMessagesAreVerbatim(t *testing.T) {
	err := NewUnsupportedLanguage("'%s' platform is not supported. Supported platforms are: %s", "test2", "test1")
	assert.Equal(t, "'test2' platform is not supported. Supported platforms are: test1", err.Error())
}
