package jobs

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"tabjobs/internal/fixture"
	"tabjobs/internal/report"
	"tabjobs/internal/schema"
	"tabjobs/internal/summary"
	"tabjobs/internal/table"
	"tabjobs/internal/transformer/builtin"
	"tabjobs/internal/window"
)

func init() { Register(Crypto{}) }

var cryptoSchema = schema.New(
	schema.Column{Name: "date", Source: "Date", Kind: table.Date, OnError: schema.OnErrorDrop},
	schema.Column{Name: "price", Source: "Price", Kind: table.Float},
)

// Crypto smooths a daily price series with a trailing moving average and
// plots both against the overall average price.
type Crypto struct{}

func (Crypto) Name() string { return "crypto" }

func (c Crypto) Run(ctx context.Context, env Env) (Result, error) {
	cfg := env.Config.Crypto
	r := newRun(ctx, c.Name(), env)

	start, err := time.Parse(time.DateOnly, cfg.Start)
	if err != nil {
		return Result{}, fmt.Errorf("crypto: start date: %w", err)
	}
	gen, err := fixture.Generate(fixture.CryptoName, fixture.Options{Rows: cfg.Rows, Start: start}, env.Rand)
	if err != nil {
		return Result{}, err
	}
	// Prices travel as JSON records.
	raw, err := r.saveRaw(gen, "bitcoin_prices.json")
	if err != nil {
		return Result{}, err
	}

	var t table.Table
	err = r.stage("clean", func() error {
		if t, err = builtin.Coerce(raw, cryptoSchema); err != nil {
			return err
		}
		t, err = table.SortBy(t, "date")
		return err
	})
	if err != nil {
		return Result{}, err
	}

	err = r.stage("window", func() error {
		t, err = window.Column(t, window.Spec{
			Column:    "price",
			OrderBy:   "date",
			Window:    cfg.Window,
			Func:      window.Mean,
			Output:    "moving_average",
			Precision: cfg.Precision,
		})
		return err
	})
	if err != nil {
		return Result{}, err
	}

	var avg float64
	err = r.stage("summarize", func() error {
		st, err := summary.Describe(t, "price")
		if err != nil {
			return err
		}
		avg = table.Round(st.Mean, cfg.Precision)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	r.log.Info("crypto: summarized", zap.Float64("average_price", avg), zap.Int("window", cfg.Window))

	err = r.stage("load", func() error {
		chart, err := cryptoChart(t, avg)
		if err != nil {
			return err
		}
		if err := r.renderNonEmpty(chart, t.NumRows()); err != nil {
			return err
		}
		return r.save(t, "bitcoin_processed")
	})
	if err != nil {
		return Result{}, err
	}
	return r.finish(t), nil
}

func cryptoChart(t table.Table, avg float64) (report.Chart, error) {
	dates, err := t.Column("date")
	if err != nil {
		return report.Chart{}, err
	}
	price, err := t.Column("price")
	if err != nil {
		return report.Chart{}, err
	}
	ma, err := t.Column("moving_average")
	if err != nil {
		return report.Chart{}, err
	}
	chart := report.Chart{
		ID:     "bitcoin_plot",
		Kind:   report.Line,
		Title:  "Bitcoin price",
		XLabel: "date",
		YLabel: "price",
		Labels: dates.Strings(),
		Series: []report.Series{
			{Name: "price", Values: price.Floats()},
			{Name: "moving_average", Values: ma.Floats()},
		},
	}
	if !math.IsNaN(avg) {
		chart.RefLines = []report.RefLine{{Label: "average", Y: avg}}
	}
	return chart, nil
}
