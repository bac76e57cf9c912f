package jobs

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"tabjobs/internal/fixture"
	"tabjobs/internal/report"
	"tabjobs/internal/schema"
	"tabjobs/internal/summary"
	"tabjobs/internal/table"
	"tabjobs/internal/transformer/builtin"
)

func init() { Register(Incidents{}) }

var incidentsSchema = schema.New(
	schema.Column{Name: "attack_type", Source: "AttackType", Kind: table.Category},
	schema.Column{Name: "severity", Source: "Severity", Kind: table.Category},
	schema.Column{Name: "date", Source: "Date", Kind: table.Date},
)

// Incidents reports how security incidents split across attack types and
// severities. Severities are ordered by the configured scale, not
// alphabetically.
type Incidents struct{}

func (Incidents) Name() string { return "incidents" }

func (in Incidents) Run(ctx context.Context, env Env) (Result, error) {
	cfg := env.Config.Incidents
	r := newRun(ctx, in.Name(), env)

	gen, err := fixture.Generate(fixture.IncidentsName, fixture.Options{Rows: cfg.Rows}, env.Rand)
	if err != nil {
		return Result{}, err
	}
	raw, err := r.saveRaw(gen, "incidents_raw")
	if err != nil {
		return Result{}, err
	}

	var t table.Table
	err = r.stage("clean", func() error {
		t, err = builtin.Coerce(raw, incidentsSchema)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	var (
		shares   []summary.Share
		severity summary.Groups
		cross    summary.CrossTab
	)
	err = r.stage("summarize", func() error {
		if shares, err = summary.PercentageDistribution(t, "attack_type"); err != nil {
			return err
		}
		order := summary.Order{Custom: cfg.SeverityOrder}
		if severity, err = summary.GroupAggregate(t, "severity", "", summary.Count, order); err != nil {
			return err
		}
		cross, err = summary.CrossTabulate(t, summary.CrossSpec{
			Row:      "attack_type",
			Col:      "severity",
			Func:     summary.Count,
			ColOrder: cfg.SeverityOrder,
		})
		return err
	})
	if err != nil {
		return Result{}, err
	}
	for _, g := range severity {
		if !g.Missing && !slices.Contains(cfg.SeverityOrder, g.Label) {
			r.log.Warn("incidents: severity outside the configured scale", zap.String("severity", g.Label), zap.Int("rows", g.Rows))
		}
	}

	err = r.stage("load", func() error {
		labels := make([]string, len(shares))
		percents := make([]float64, len(shares))
		for i, s := range shares {
			labels[i], percents[i] = s.Label, s.Percent
		}
		err := r.renderNonEmpty(report.Chart{
			ID:     "types_distribution",
			Kind:   report.Bar,
			Title:  "Attack type distribution",
			XLabel: "attack type",
			YLabel: "percent",
			Labels: labels,
			Series: []report.Series{{Name: "percent", Values: percents}},
		}, len(shares))
		if err != nil {
			return err
		}
		err = r.renderNonEmpty(report.Chart{
			ID:     "severity_bar",
			Kind:   report.Bar,
			Title:  "Incidents by severity",
			XLabel: "severity",
			YLabel: "incidents",
			Labels: severity.Labels(),
			Series: []report.Series{{Name: "incidents", Values: severity.Values()}},
		}, len(severity))
		if err != nil {
			return err
		}

		tab := cross.Table()
		if err := r.saveSummary(tab, "summary_table.csv"); err != nil {
			return err
		}
		if err := r.render(report.Chart{ID: "summary_table", Kind: report.Table, Title: "Attack type by severity", Table: tab}); err != nil {
			return err
		}
		return r.save(t, "incidents_processed")
	})
	if err != nil {
		return Result{}, err
	}
	return r.finish(t), nil
}
