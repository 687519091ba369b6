package logx

import (
	"sync"
	"time"
)

// TimedEvent measures a named region and logs its duration once when ended.
type TimedEvent struct {
	logger *Logger
	name   string
	props  map[string]string
	start  time.Time
	once   sync.Once
	onEnd  func(name string, elapsed time.Duration)
}

// StartTimedEvent begins measuring the named event. onEnd, when non-nil, is
// called with the elapsed time after the event is logged.
func (l *Logger) StartTimedEvent(name string, props map[string]string, onEnd func(string, time.Duration)) *TimedEvent {
	l.Debug("Event %s started", name)
	return &TimedEvent{
		logger: l,
		name:   name,
		props:  props,
		start:  time.Now(),
		onEnd:  onEnd,
	}
}

// Name returns the event name.
func (e *TimedEvent) Name() string {
	return e.name
}

// End records the measurement. Further calls are no-ops.
func (e *TimedEvent) End() time.Duration {
	var elapsed time.Duration
	e.once.Do(func() {
		elapsed = time.Since(e.start)
		if len(e.props) > 0 {
			e.logger.Info("Event %s completed in %s %v", e.name, elapsed.Round(time.Millisecond), e.props)
		} else {
			e.logger.Info("Event %s completed in %s", e.name, elapsed.Round(time.Millisecond))
		}
		if e.onEnd != nil {
			e.onEnd(e.name, elapsed)
		}
	})
	return elapsed
}
