package logx

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestLogger sets up a logger with a bytes.Buffer for testing.
func setupTestLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })
	return &buf
}

func TestLogFormat(t *testing.T) {
	buf := setupTestLogger(t)

	logger := NewLogger("build-script-generator")
	logger.Info("Selected platform %s", "python")

	output := buf.String()
	assert.Contains(t, output, "[build-script-generator]")
	assert.Contains(t, output, "INFO")
	assert.Contains(t, output, "Selected platform python")

	start := strings.Index(output, "[")
	end := strings.Index(output, "]")
	require.True(t, start >= 0 && end > start, "no timestamp in %q", output)
	_, err := time.Parse(timestampFormat, output[start+1:end])
	assert.NoError(t, err)
}

func TestLogLevels(t *testing.T) {
	logger := NewLogger("detector")

	tests := []struct {
		level   Level
		logFunc func(string, ...any)
	}{
		{LevelDebug, logger.Debug},
		{LevelInfo, logger.Info},
		{LevelWarn, logger.Warn},
		{LevelError, logger.Error},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			buf := setupTestLogger(t)
			if tt.level == LevelDebug {
				SetDebug(true)
				defer SetDebug(false)
			}

			tt.logFunc("test message")
			assert.Contains(t, buf.String(), string(tt.level))
		})
	}
}

func TestDebugSuppressedWhenDisabled(t *testing.T) {
	buf := setupTestLogger(t)
	SetDebug(false)

	NewLogger("detector").Debug("hidden")
	Debug(context.Background(), "detector", "hidden too")

	assert.Empty(t, buf.String())
}

func TestDomainDebugFiltering(t *testing.T) {
	buf := setupTestLogger(t)
	SetDebug(true)
	SetDebugDomains([]string{"detector"})
	defer func() {
		SetDebug(false)
		SetDebugDomains(nil)
	}()

	ctx := WithComponent(context.Background(), "cli")
	Debug(ctx, "detector", "found %d project files", 2)
	Debug(ctx, "exec", "should not appear")

	output := buf.String()
	assert.Contains(t, output, "[cli]")
	assert.Contains(t, output, "[detector] found 2 project files")
	assert.NotContains(t, output, "should not appear")
}

func TestWrap(t *testing.T) {
	buf := setupTestLogger(t)

	assert.NoError(t, Wrap(nil, "noop"))

	base := errors.New("connection refused")
	err := Wrap(base, "fetch version listing")
	require.Error(t, err)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "fetch version listing: connection refused", err.Error())
	assert.Contains(t, buf.String(), "ERROR: fetch version listing: connection refused")
}

func TestTimedEventEndsOnce(t *testing.T) {
	buf := setupTestLogger(t)

	calls := 0
	event := NewLogger("textspan").StartTimedEvent("BuildScript", nil, func(name string, _ time.Duration) {
		calls++
		assert.Equal(t, "BuildScript", name)
	})
	event.End()
	event.End()

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, strings.Count(buf.String(), "Event BuildScript completed"))
}
