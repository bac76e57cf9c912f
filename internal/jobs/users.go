package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tabjobs/internal/fixture"
	"tabjobs/internal/report"
	"tabjobs/internal/schema"
	"tabjobs/internal/table"
	"tabjobs/internal/transformer"
	"tabjobs/internal/transformer/builtin"
)

func init() { Register(Users{}) }

var usersSchema = schema.New(
	schema.Column{Name: "first_name", Source: "FirstName", Kind: table.String, Nullable: true},
	schema.Column{Name: "last_name", Source: "LastName", Kind: table.String, Nullable: true},
	schema.Column{Name: "email", Source: "Email", Kind: table.String, Nullable: true},
	schema.Column{Name: "age", Source: "Age", Kind: table.Int, Nullable: true},
)

// Users removes duplicate accounts, fills absent cells with a placeholder
// and masks e-mail addresses before publishing a preview.
type Users struct{}

func (Users) Name() string { return "users" }

func (u Users) Run(ctx context.Context, env Env) (Result, error) {
	cfg := env.Config.Users
	r := newRun(ctx, u.Name(), env)

	gen, err := fixture.Generate(fixture.UsersName, fixture.Options{Rows: cfg.Rows}, env.Rand)
	if err != nil {
		return Result{}, err
	}
	raw, err := r.saveRaw(gen, "users_raw")
	if err != nil {
		return Result{}, err
	}

	var t table.Table
	err = r.stage("clean", func() error {
		typed, err := builtin.Coerce(raw, usersSchema)
		if err != nil {
			return err
		}
		r.log.Info("users: missing cells", zap.Stringers("before", builtin.CountMissing(typed)))

		// Dedup runs before the fill so absent e-mails stay distinct.
		chain := transformer.Chain{
			builtin.Dedup{Keys: []string{"email"}, Policy: builtin.KeepFirst},
			builtin.FillMissing{Policy: builtin.FillNullable(usersSchema, cfg.Fill)},
			builtin.Mask{Column: "email", Keep: cfg.MaskKeep},
		}
		if t, err = chain.Apply(typed); err != nil {
			return err
		}
		r.dropped("dedup", typed.NumRows(), t.NumRows())
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	err = r.stage("load", func() error {
		if err := r.save(t, "users_cleaned"); err != nil {
			return err
		}
		if cfg.Preview <= 0 {
			return nil
		}
		return r.render(report.Chart{
			ID:    "users_preview",
			Kind:  report.Table,
			Title: fmt.Sprintf("Cleaned users (first %d rows)", min(cfg.Preview, t.NumRows())),
			Table: t.Head(cfg.Preview),
		})
	})
	if err != nil {
		return Result{}, err
	}
	return r.finish(t), nil
}
