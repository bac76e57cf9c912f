package jobs

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tabjobs/internal/config"
	"tabjobs/internal/metrics"
	"tabjobs/internal/report"
	"tabjobs/internal/store"
)

// Runner executes jobs against shared collaborators.
type Runner struct {
	Store    store.Store
	Renderer report.Renderer
	Log      *zap.Logger
	// Seed makes fixtures reproducible. Each job derives its own stream from
	// Seed and its name, so results do not depend on which jobs run together
	// or in what order.
	Seed uint64
	// Parallel bounds the number of jobs running at once; values below 2 run
	// jobs one after another.
	Parallel int
	Jobs     config.JobsConfig
	// Now defaults to time.Now.
	Now func() time.Time
}

// Rand returns the random source of the named job.
func Rand(seed uint64, job string) *rand.Rand {
	return rand.New(rand.NewPCG(seed, xxh3.HashString(job)))
}

// Run executes the named jobs, or every registered job when names is empty.
// The first failing job cancels the others; Run returns its error together
// with the results of the jobs that completed, in the order of names.
func (r *Runner) Run(ctx context.Context, names []string) ([]Result, error) {
	if len(names) == 0 {
		names = Names()
	}
	selected := make([]Job, len(names))
	for i, n := range names {
		j, ok := Lookup(n)
		if !ok {
			return nil, fmt.Errorf("jobs: unknown job %q (have %s)", n, strings.Join(Names(), ", "))
		}
		selected[i] = j
	}

	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	runID := uuid.NewString()
	log.Info("run: start", zap.String("run_id", runID), zap.Strings("jobs", names), zap.Int("parallel", max(r.Parallel, 1)))

	results := make([]Result, len(selected))
	done := make([]bool, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Parallel, 1))
	for i, j := range selected {
		g.Go(func() error {
			env := Env{
				Store:    r.Store,
				Renderer: r.Renderer,
				Log:      log,
				Rand:     Rand(r.Seed, j.Name()),
				RunID:    runID,
				Now:      r.Now,
				Config:   r.Jobs,
			}
			start := time.Now()
			var res Result
			err := metrics.Time(j.Name(), "job", func() error {
				var err error
				res, err = j.Run(gctx, env)
				return err
			})
			if err != nil {
				log.Error("job: failed", zap.String("job", j.Name()), zap.Error(err))
				return err
			}
			res.Duration = time.Since(start)
			results[i], done[i] = res, true
			log.Info("job: done",
				zap.String("job", j.Name()),
				zap.Int("rows", res.Rows),
				zap.Int("artifacts", len(res.Artifacts)),
				zap.Int("reports", len(res.Reports)),
				zap.Duration("took", res.Duration.Truncate(time.Millisecond)))
			return nil
		})
	}
	err := g.Wait()

	out := make([]Result, 0, len(results))
	for i, res := range results {
		if done[i] {
			out = append(out, res)
		}
	}
	if err != nil {
		return out, err
	}
	log.Info("run: done", zap.String("run_id", runID), zap.Int("jobs", len(out)))
	return out, nil
}
