// Package jobs holds the batch jobs built on the tabular core and the runner
// that executes them.
//
// A job generates its fixture, persists the raw batch, loads it back through
// the Artifact Store, transforms it and hands finished summaries to the
// Report Renderer. Jobs register themselves at init time.
package jobs

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"tabjobs/internal/config"
	"tabjobs/internal/metrics"
	"tabjobs/internal/report"
	"tabjobs/internal/store"
	"tabjobs/internal/table"
)

// Job is one batch job.
type Job interface {
	Name() string
	Run(ctx context.Context, env Env) (Result, error)
}

// Env carries the collaborators of a single job run. Rand is owned by the
// job; it must not be shared between concurrently running jobs.
type Env struct {
	Store    store.Store
	Renderer report.Renderer
	Log      *zap.Logger
	Rand     *rand.Rand
	RunID    string
	Now      func() time.Time
	Config   config.JobsConfig
}

// Result lists what a job produced.
type Result struct {
	Job       string
	RunID     string
	Rows      int // rows of the final processed table
	Artifacts []string
	Reports   []report.Handle
	Duration  time.Duration
}

var (
	mu       sync.RWMutex
	registry = map[string]Job{}
)

// Register makes j available under j.Name(). Registering a name twice
// replaces the earlier job.
func Register(j Job) {
	mu.Lock()
	defer mu.Unlock()
	registry[j.Name()] = j
}

// Lookup returns the job registered under name.
func Lookup(name string) (Job, bool) {
	mu.RLock()
	defer mu.RUnlock()
	j, ok := registry[name]
	return j, ok
}

// Names returns the registered job names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// run tracks one job execution: it times stages and records the artifacts
// the job writes.
type run struct {
	ctx context.Context
	env Env
	log *zap.Logger
	res Result
}

func newRun(ctx context.Context, name string, env Env) *run {
	log := env.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("job", name), zap.String("run_id", env.RunID))
	return &run{ctx: ctx, env: env, log: log, res: Result{Job: name, RunID: env.RunID}}
}

// stage runs fn as the named stage.
func (r *run) stage(name string, fn func() error) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	err := metrics.Time(r.res.Job, name, fn)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", r.res.Job, name, err)
	}
	r.log.Debug("stage: done", zap.String("stage", name))
	return nil
}

// saveRaw persists a raw batch as an untyped table and loads it back, so the
// rest of the job reads exactly what the store holds.
func (r *run) saveRaw(raw table.Raw, id string) (table.Raw, error) {
	var loaded table.Raw
	err := r.stage("extract", func() error {
		t, err := table.FromRaw(raw)
		if err != nil {
			return err
		}
		if err := r.save(t, id); err != nil {
			return err
		}
		loaded, err = r.env.Store.Load(r.ctx, id)
		return err
	})
	if err != nil {
		return table.Raw{}, err
	}
	metrics.RecordRows(r.res.Job, "extracted", loaded.NumRows())
	return loaded, nil
}

func (r *run) save(t table.Table, id string) error {
	if err := r.env.Store.Save(r.ctx, t, id); err != nil {
		return fmt.Errorf("save %s: %w", id, err)
	}
	r.res.Artifacts = append(r.res.Artifacts, id)
	metrics.RecordArtifact(r.res.Job, "table")
	r.log.Info("store: saved", zap.String("id", id), zap.Int("rows", t.NumRows()))
	return nil
}

func (r *run) saveSummary(v any, id string) error {
	if err := r.env.Store.SaveSummary(r.ctx, v, id); err != nil {
		return fmt.Errorf("save summary %s: %w", id, err)
	}
	r.res.Artifacts = append(r.res.Artifacts, id)
	metrics.RecordArtifact(r.res.Job, "summary")
	r.log.Info("store: saved summary", zap.String("id", id))
	return nil
}

func (r *run) render(c report.Chart) error {
	h, err := r.env.Renderer.Render(r.ctx, c)
	if err != nil {
		return fmt.Errorf("render %s: %w", c.ID, err)
	}
	r.res.Reports = append(r.res.Reports, h)
	metrics.RecordArtifact(r.res.Job, "report")
	r.log.Info("report: rendered", zap.String("id", h.ID), zap.String("path", h.Path))
	return nil
}

// finish records the final table size.
func (r *run) finish(t table.Table) Result {
	r.res.Rows = t.NumRows()
	metrics.RecordRows(r.res.Job, "processed", t.NumRows())
	return r.res
}

// dropped logs and counts rows a stage removed.
func (r *run) dropped(stage string, before, after int) {
	if n := before - after; n > 0 {
		metrics.RecordRows(r.res.Job, "dropped", n)
		r.log.Info("rows: dropped", zap.String("stage", stage), zap.Int("dropped", n), zap.Int("kept", after))
	}
}

func (e Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// stamp is attached to every summary artifact.
type stamp struct {
	RunID       string `json:"run_id" yaml:"run_id"`
	GeneratedAt string `json:"generated_at" yaml:"generated_at"`
}

func (e Env) stamp() stamp {
	return stamp{RunID: e.RunID, GeneratedAt: e.now().UTC().Format(time.RFC3339)}
}

// renderNonEmpty renders c unless it would have no data points.
func (r *run) renderNonEmpty(c report.Chart, points int) error {
	if points == 0 {
		r.log.Warn("report: skipped empty chart", zap.String("id", c.ID))
		return nil
	}
	return r.render(c)
}

func roundAll(vs []float64, places int) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = table.Round(v, places)
	}
	return out
}
