package jobs

import (
	"context"
	"math"

	"go.uber.org/zap"

	"tabjobs/internal/fixture"
	"tabjobs/internal/report"
	"tabjobs/internal/schema"
	"tabjobs/internal/summary"
	"tabjobs/internal/table"
	"tabjobs/internal/transformer/builtin"
)

func init() { Register(Sales{}) }

var salesSchema = schema.New(
	schema.Column{Name: "date", Source: "Date", Kind: table.Date},
	schema.Column{Name: "product", Source: "Product", Kind: table.Category},
	schema.Column{Name: "quantity", Source: "Quantity", Kind: table.Int},
	schema.Column{Name: "price", Source: "Price", Kind: table.Float},
)

// SalesStats is the sales_stats summary.
type SalesStats struct {
	stamp        `yaml:",inline"`
	Rows         int     `json:"rows" yaml:"rows"`
	TotalRevenue float64 `json:"total_revenue" yaml:"total_revenue"`
	AveragePrice float64 `json:"average_price" yaml:"average_price"`
}

// Sales cleans a sales batch, derives revenue per row and charts revenue per
// product against five times the average unit price.
type Sales struct{}

func (Sales) Name() string { return "sales" }

func (s Sales) Run(ctx context.Context, env Env) (Result, error) {
	cfg := env.Config.Sales
	r := newRun(ctx, s.Name(), env)

	gen, err := fixture.Generate(fixture.SalesName, fixture.Options{Rows: cfg.Rows}, env.Rand)
	if err != nil {
		return Result{}, err
	}
	raw, err := r.saveRaw(gen, "sales_raw")
	if err != nil {
		return Result{}, err
	}

	var t table.Table
	err = r.stage("clean", func() error {
		if t, err = builtin.Coerce(raw, salesSchema); err != nil {
			return err
		}
		before := t.NumRows()
		if t, err = builtin.DropMissing(t, "quantity", "price"); err != nil {
			return err
		}
		r.dropped("clean", before, t.NumRows())
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	err = r.stage("derive", func() error {
		e, err := builtin.ParseExpr("revenue", "quantity * price", cfg.Precision)
		if err != nil {
			return err
		}
		t, err = builtin.Derive(t, e)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	var (
		stats  SalesStats
		groups summary.Groups
	)
	err = r.stage("summarize", func() error {
		revenue, err := summary.Describe(t, "revenue")
		if err != nil {
			return err
		}
		price, err := summary.Describe(t, "price")
		if err != nil {
			return err
		}
		stats = SalesStats{
			stamp:        env.stamp(),
			Rows:         t.NumRows(),
			TotalRevenue: table.Round(revenue.Sum, cfg.Precision),
			AveragePrice: table.Round(price.Mean, cfg.Precision),
		}
		groups, err = summary.GroupAggregate(t, "product", "revenue", summary.Sum, summary.Order{ByValue: true})
		return err
	})
	if err != nil {
		return Result{}, err
	}
	r.log.Info("sales: summarized",
		zap.Float64("total_revenue", stats.TotalRevenue),
		zap.Float64("average_price", stats.AveragePrice),
		zap.Int("products", len(groups)))

	err = r.stage("load", func() error {
		if err := r.saveSummary(stats, "sales_stats"); err != nil {
			return err
		}
		chart := report.Chart{
			ID:     "sales_revenue",
			Kind:   report.Bar,
			Title:  "Revenue by product",
			XLabel: "product",
			YLabel: "revenue",
			Labels: groups.Labels(),
			Series: []report.Series{{Name: "revenue", Values: roundAll(groups.Values(), cfg.Precision)}},
		}
		if !math.IsNaN(stats.AveragePrice) {
			chart.RefLines = []report.RefLine{{Label: "average price x5", Y: table.Round(stats.AveragePrice*5, cfg.Precision)}}
		}
		if err := r.renderNonEmpty(chart, len(groups)); err != nil {
			return err
		}
		return r.save(t, "sales_clean")
	})
	if err != nil {
		return Result{}, err
	}
	return r.finish(t), nil
}
