// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from batch jobs.
//
// A global, pluggable backend defaults to a no-op implementation, so metrics
// are always safe to call even when no real backend is configured. Concrete
// systems live in subpackages (prompush, datadog) and are installed once at
// startup with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by the helpers below.
const (
	StageTotal     = "tabjobs_stage_total"
	StageDuration  = "tabjobs_stage_duration_seconds"
	RowsTotal      = "tabjobs_rows_total"
	ArtifactsTotal = "tabjobs_artifacts_total"

	statusSuccess = "success"
	statusFailure = "failure"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil restores the no-op
// backend.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStage counts one execution of a job stage and observes its duration.
func RecordStage(job, stage string, err error, d time.Duration) {
	status := statusSuccess
	if err != nil {
		status = statusFailure
	}
	lbls := Labels{"job": job, "stage": stage, "status": status}
	b := current()
	b.IncCounter(StageTotal, 1, lbls)
	b.ObserveHistogram(StageDuration, d.Seconds(), lbls)
}

// Time runs fn as a named stage of job and records it.
func Time(job, stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	RecordStage(job, stage, err, time.Since(start))
	return err
}

// RecordRows adds delta to a row counter. Typical kinds:
//   - "loaded"
//   - "coerced"
//   - "dropped"
//   - "saved"
func RecordRows(job, kind string, delta int) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordArtifact counts one artifact written by job; kind is table,
// summary or chart.
func RecordArtifact(job, kind string) {
	current().IncCounter(ArtifactsTotal, 1, Labels{"job": job, "kind": kind})
}
