// Package textspan marks timed regions in a build's stdout stream. The
// generated script echoes a span's begin and end markers and EventLogger
// turns them into timed events.
package textspan

import (
	"strings"
	"sync"
	"time"

	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

// Span names.
const (
	RunPreBuildScript  = "RunPreBuildScript"
	RunPostBuildScript = "RunPostBuildScript"
	RunBuildScript     = "RunBuildScript"
)

// TextSpan is a named region delimited by marker lines.
type TextSpan struct {
	Name        string
	BeginMarker string
	EndMarker   string
}

// Equal compares spans by name.
func (s TextSpan) Equal(other TextSpan) bool {
	return s.Name == other.Name
}

// PreBuild brackets the user's pre-build command.
var PreBuild = TextSpan{
	Name:        RunPreBuildScript,
	BeginMarker: "Executing pre-build command...",
	EndMarker:   "Finished executing pre-build command.",
}

// PostBuild brackets the user's post-build command.
var PostBuild = TextSpan{
	Name:        RunPostBuildScript,
	BeginMarker: "Executing post-build command...",
	EndMarker:   "Finished executing post-build command.",
}

// Known returns the spans emitted by generated build scripts.
func Known() []TextSpan {
	return []TextSpan{PreBuild, PostBuild}
}

// Observer receives the duration of every completed span.
type Observer interface {
	ObserveSpan(name string, elapsed time.Duration)
}

// EventLogger watches output lines for span markers.
type EventLogger struct {
	mu       sync.Mutex
	spans    []TextSpan
	running  map[string]*logx.TimedEvent
	logger   *logx.Logger
	observer Observer
}

// NewEventLogger creates a logger over spans. A nil observer only logs.
func NewEventLogger(spans []TextSpan, observer Observer) *EventLogger {
	return &EventLogger{
		spans:    spans,
		running:  make(map[string]*logx.TimedEvent),
		logger:   logx.NewLogger("textspan"),
		observer: observer,
	}
}

// CheckString starts or ends the span whose marker matches line.
func (l *EventLogger) CheckString(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, span := range l.spans {
		switch line {
		case span.BeginMarker:
			if _, ok := l.running[span.Name]; !ok {
				l.running[span.Name] = l.logger.StartTimedEvent(span.Name, nil, l.onEnd)
			}
		case span.EndMarker:
			if event, ok := l.running[span.Name]; ok {
				event.End()
				delete(l.running, span.Name)
			}
		}
	}
}

// Running returns the names of spans that have begun but not ended.
func (l *EventLogger) Running() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.running))
	for _, span := range l.spans {
		if _, ok := l.running[span.Name]; ok {
			names = append(names, span.Name)
		}
	}
	return names
}

// Start begins a timed event that is not driven by markers, such as the
// whole script run. The caller ends it.
func (l *EventLogger) Start(name string, props map[string]string) *logx.TimedEvent {
	return l.logger.StartTimedEvent(name, props, l.onEnd)
}

func (l *EventLogger) onEnd(name string, elapsed time.Duration) {
	if l.observer != nil {
		l.observer.ObserveSpan(name, elapsed)
	}
}
