// Package logx provides component-scoped logging for the build pipeline with
// context-aware, domain-filtered debug output.
package logx

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger writes leveled log lines tagged with the component that produced them.
type Logger struct {
	component string
}

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

const timestampFormat = "2006-01-02T15:04:05.000Z"

// componentKey is the context key under which the calling component is stored.
type componentKey struct{}

// DebugConfig controls debug logging behavior.
type DebugConfig struct {
	Enabled bool
	Domains map[string]bool // Which domains to enable debug for (nil = all)
}

//nolint:gochecknoglobals // Process-wide logging configuration.
var (
	debugConfig = &DebugConfig{}
	debugMutex  sync.RWMutex

	// logWriter overrides stderr when non-nil; tests swap it for a buffer.
	logWriter     io.Writer
	logWriterLock sync.Mutex
)

func init() { //nolint:gochecknoinits // Required for env var initialization
	initDebugFromEnv()
}

// initDebugFromEnv reads DEBUG=1|true and DEBUG_DOMAINS=detector,buildscript.
func initDebugFromEnv() {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debug := os.Getenv("DEBUG"); debug == "1" || strings.EqualFold(debug, "true") {
		debugConfig.Enabled = true
	}

	if domains := os.Getenv("DEBUG_DOMAINS"); domains != "" {
		debugConfig.Domains = make(map[string]bool)
		for _, domain := range strings.Split(domains, ",") {
			debugConfig.Domains[strings.TrimSpace(domain)] = true
		}
	}
}

// NewLogger creates a logger for the named component.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// SetDebug enables or disables debug output globally.
func SetDebug(enabled bool) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugConfig.Enabled = enabled
}

// SetDebugDomains configures which domains should have debug logging enabled.
func SetDebugDomains(domains []string) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if len(domains) == 0 {
		debugConfig.Domains = nil
		return
	}
	debugConfig.Domains = make(map[string]bool)
	for _, domain := range domains {
		debugConfig.Domains[strings.TrimSpace(domain)] = true
	}
}

// SetOutput redirects all log output. A nil writer restores stderr.
func SetOutput(w io.Writer) {
	logWriterLock.Lock()
	defer logWriterLock.Unlock()
	logWriter = w
}

// IsDebugEnabled returns whether debug logging is enabled.
func IsDebugEnabled() bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()
	return debugConfig.Enabled
}

// IsDebugEnabledForDomain returns whether debug logging is enabled for a specific domain.
func IsDebugEnabledForDomain(domain string) bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()

	if !debugConfig.Enabled {
		return false
	}
	if debugConfig.Domains == nil {
		return true
	}
	return debugConfig.Domains[domain]
}

func writeLine(line string) {
	logWriterLock.Lock()
	defer logWriterLock.Unlock()

	var w io.Writer = os.Stderr
	if logWriter != nil {
		w = logWriter
	}
	_, _ = fmt.Fprintln(w, line)
}

func (l *Logger) log(level Level, format string, args ...any) {
	timestamp := time.Now().UTC().Format(timestampFormat)
	writeLine(fmt.Sprintf("[%s] [%s] %s: %s", timestamp, l.component, level, fmt.Sprintf(format, args...)))
}

func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabled() {
		return
	}
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

// WithComponent stores the component name in ctx for domain debug logging.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey{}, component)
}

// Debug logs a debug message with context and domain filtering.
//
//	logx.Debug(ctx, "detector", "python: runtime.txt hint %q", hint)
//
// Environment variable control:
//
//	DEBUG=1                                # all domains
//	DEBUG=1 DEBUG_DOMAINS=detector         # detector only
//	DEBUG=1 DEBUG_DOMAINS=detector,exec    # several domains
func Debug(ctx context.Context, domain, format string, args ...any) {
	if !IsDebugEnabledForDomain(domain) {
		return
	}

	component := "unknown"
	if ctx != nil {
		if c, ok := ctx.Value(componentKey{}).(string); ok {
			component = c
		}
	}

	timestamp := time.Now().UTC().Format(timestampFormat)
	writeLine(fmt.Sprintf("[%s] [%s] %s: [%s] %s",
		timestamp, component, LevelDebug, domain, fmt.Sprintf(format, args...)))
}

//nolint:gochecknoglobals // Package-level convenience logger.
var defaultLogger = NewLogger("oryx")

// Wrap logs msg + ": " + err.Error() and returns fmt.Errorf("%s: %w", msg, err).
//
//	if err != nil { return logx.Wrap(err, "read defaultVersion.txt") }
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrappedErr := fmt.Errorf("%s: %w", msg, err)
	defaultLogger.Error("%s", wrappedErr.Error())
	return wrappedErr
}
