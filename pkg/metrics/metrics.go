// Package metrics records build telemetry in a Prometheus registry and
// exports it in the text exposition format, for example to a node
// exporter textfile directory.
package metrics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Recorder holds the build collectors.
type Recorder struct {
	registry        *prometheus.Registry
	buildsTotal     *prometheus.CounterVec
	buildDuration   prometheus.Histogram
	spanDuration    *prometheus.HistogramVec
	detectedTotal   *prometheus.CounterVec
	checkerMessages *prometheus.CounterVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		buildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oryx_builds_total",
				Help: "Total number of builds by outcome and exit code",
			},
			[]string{"status", "exit_code"},
		),
		buildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oryx_build_duration_seconds",
				Help:    "Duration of build script runs in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		spanDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oryx_build_span_duration_seconds",
				Help:    "Duration of marked regions of the build output in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
			},
			[]string{"span"},
		),
		detectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oryx_platforms_detected_total",
				Help: "Platforms selected for builds, by platform and version",
			},
			[]string{"platform", "version"},
		),
		checkerMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oryx_checker_messages_total",
				Help: "Checker messages produced, by level",
			},
			[]string{"level"},
		),
	}
}

// ObserveSpan records the duration of a marked region.
func (r *Recorder) ObserveSpan(name string, elapsed time.Duration) {
	r.spanDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// ObserveBuild records a finished build script run.
func (r *Recorder) ObserveBuild(exitCode int, elapsed time.Duration) {
	status := "success"
	if exitCode != 0 {
		status = "failure"
	}
	r.buildsTotal.WithLabelValues(status, strconv.Itoa(exitCode)).Inc()
	r.buildDuration.Observe(elapsed.Seconds())
}

// IncPlatform counts a platform selected for a build.
func (r *Recorder) IncPlatform(platform, version string) {
	r.detectedTotal.WithLabelValues(platform, version).Inc()
}

// IncCheckerMessage counts a checker message of the given level.
func (r *Recorder) IncCheckerMessage(level string) {
	r.checkerMessages.WithLabelValues(level).Inc()
}

// Gather returns the current metric families.
func (r *Recorder) Gather() ([]*dto.MetricFamily, error) {
	mfs, err := r.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}
	return mfs, nil
}

// WriteText writes every metric family in the Prometheus text format.
func (r *Recorder) WriteText(w io.Writer) error {
	mfs, err := r.Gather()
	if err != nil {
		return err
	}
	encoder := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := encoder.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteTextfile replaces path with the current metrics. The file is
// written next to path and renamed so scrapers never see partial output.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".oryx-metrics-*")
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := r.WriteText(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace metrics file: %w", err)
	}
	return nil
}
