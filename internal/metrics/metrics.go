// Package metrics records per-run Prometheus metrics and exports them to a
// node_exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "subforge"

// Batch results.
const (
	BatchRewritten = "rewritten"
	BatchCached    = "cached"
	BatchFailed    = "failed"
)

// Metrics holds the collectors for one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	CuesTotal          *prometheus.CounterVec
	WordsTotal         prometheus.Counter
	BatchesTotal       *prometheus.CounterVec
	CuesDropped        *prometheus.CounterVec
	LLMRequestDuration prometheus.Histogram
	StageDuration      *prometheus.HistogramVec
	RunsTotal          *prometheus.CounterVec
	LastRunTimestamp   prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		CuesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cues_total",
			Help:      "Cues produced, by pipeline stage",
		}, []string{"stage"}),
		WordsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "words_total",
			Help:      "Transcript words consumed by the cue assembler",
		}),
		BatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Rewrite batches by result",
		}, []string{"result"}),
		CuesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cues_dropped_total",
			Help:      "Cues removed by the hallucination filter, by reason",
		}, []string{"reason"}),
		LLMRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Chat completion latency per batch, including retries",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage",
			Buckets:   []float64{0.01, 0.1, 1, 5, 30, 60, 300, 900, 1800, 3600},
		}, []string{"stage"}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Command invocations by command and result",
		}, []string{"command", "result"}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) AddCues(stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CuesTotal.WithLabelValues(stage).Add(float64(n))
}

func (m *Metrics) AddWords(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.WordsTotal.Add(float64(n))
}

func (m *Metrics) ObserveBatch(result string) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveDropped(reason string) {
	if m == nil {
		return
	}
	m.CuesDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveLLMRequest(d time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestDuration.Observe(d.Seconds())
}

// StageTimer starts timing stage and returns the function that records it.
func (m *Metrics) StageTimer(stage string) func() {
	if m == nil {
		return func() {}
	}
	timer := prometheus.NewTimer(m.StageDuration.WithLabelValues(stage))
	return func() { timer.ObserveDuration() }
}

// FinishRun counts the run and stamps its completion time.
func (m *Metrics) FinishRun(command string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.RunsTotal.WithLabelValues(command, result).Inc()
	m.LastRunTimestamp.SetToCurrentTime()
}

// WriteTextfile writes the registry in text exposition format. An empty path
// is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
