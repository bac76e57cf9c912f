package jobs

import (
	"context"

	"go.uber.org/zap"

	"tabjobs/internal/fixture"
	"tabjobs/internal/report"
	"tabjobs/internal/schema"
	"tabjobs/internal/table"
	"tabjobs/internal/transformer/builtin"
)

func init() { Register(MLPrep{}) }

var transactionsSchema = schema.New(
	schema.Column{Name: "op_type", Source: "Operation", Kind: table.Category},
	schema.Column{Name: "category", Source: "Category", Kind: table.Category},
	schema.Column{Name: "amount", Source: "Amount", Kind: table.Float},
	schema.Column{Name: "quantity", Source: "Quantity", Kind: table.Int},
)

var (
	encodedColumns = []string{"op_type", "category"}
	scaledColumns  = []string{"amount", "quantity"}
)

// TransactionsMapping is the transactions_mapping summary: the label to code
// map of every encoded column, in column order.
type TransactionsMapping struct {
	stamp    `yaml:",inline"`
	Encoders []*builtin.EncodingMap `json:"encoders" yaml:"encoders"`
}

// TransactionsScaling is the transactions_scaling summary.
type TransactionsScaling struct {
	stamp                 `yaml:",inline"`
	builtin.ScalingParams `yaml:",inline"`
}

// MLPrep turns a transaction batch into model-ready features: categorical
// columns become integer codes and numeric columns are scaled into [0, 1].
// The fitted encoders and ranges are saved next to the table.
type MLPrep struct{}

func (MLPrep) Name() string { return "mlprep" }

func (m MLPrep) Run(ctx context.Context, env Env) (Result, error) {
	cfg := env.Config.MLPrep
	r := newRun(ctx, m.Name(), env)

	gen, err := fixture.Generate(fixture.TransactionsName, fixture.Options{Rows: cfg.Rows}, env.Rand)
	if err != nil {
		return Result{}, err
	}
	raw, err := r.saveRaw(gen, "transactions_raw")
	if err != nil {
		return Result{}, err
	}

	var t table.Table
	err = r.stage("clean", func() error {
		t, err = builtin.Coerce(raw, transactionsSchema)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	var (
		mapping = TransactionsMapping{stamp: env.stamp()}
		scaling = TransactionsScaling{stamp: env.stamp()}
	)
	err = r.stage("encode", func() error {
		for _, col := range encodedColumns {
			var m *builtin.EncodingMap
			if t, m, err = builtin.Encode(t, col, nil); err != nil {
				return err
			}
			mapping.Encoders = append(mapping.Encoders, m)
			r.log.Info("mlprep: encoded", zap.String("column", col), zap.Any("mapping", m.Mapping()))
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	err = r.stage("scale", func() error {
		t, scaling.ScalingParams, err = builtin.Scale(t, scaledColumns, nil)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	missing := 0
	for _, mc := range builtin.CountMissing(t) {
		missing += mc.Missing
		if mc.Missing > 0 {
			r.log.Warn("mlprep: missing cells", zap.String("column", mc.Column), zap.Int("missing", mc.Missing))
		}
	}
	if missing == 0 {
		r.log.Info("mlprep: no missing cells")
	}

	err = r.stage("load", func() error {
		if err := r.saveSummary(mapping, "transactions_mapping"); err != nil {
			return err
		}
		if err := r.saveSummary(scaling, "transactions_scaling"); err != nil {
			return err
		}
		series := make([]report.Series, 0, len(scaledColumns))
		for _, col := range scaledColumns {
			c, err := t.Column(col)
			if err != nil {
				return err
			}
			series = append(series, report.Series{Name: col, Values: c.Floats()})
		}
		err := r.renderNonEmpty(report.Chart{
			ID:     "transactions_hist",
			Kind:   report.Hist,
			Title:  "Scaled feature distribution",
			XLabel: "scaled value",
			YLabel: "rows",
			Series: series,
			Bins:   cfg.Bins,
		}, t.NumRows())
		if err != nil {
			return err
		}
		return r.save(t, "transactions_processed")
	})
	if err != nil {
		return Result{}, err
	}
	return r.finish(t), nil
}
