package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tabjobs/internal/config"
	"tabjobs/internal/jobs"
	"tabjobs/internal/report"
	"tabjobs/internal/store"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run [job...]",
		Short: "Run jobs (all registered jobs when none are named)",
		Example: `  tabjobs run
  tabjobs run sales crypto --parallel 2
  tabjobs run users --store sqlite --dsn out/tabjobs.db`,
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return jobs.Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := lint(cmd.ErrOrStderr(), a.cfg); err != nil {
				return err
			}
			ctx := cmd.Context()

			flush, err := setupMetrics(a.cfg.Metrics, a.log)
			if err != nil {
				return err
			}
			defer flush()

			st, err := store.New(ctx, store.Config{
				Kind:   a.cfg.Store.Kind,
				Dir:    a.cfg.Store.Dir,
				DSN:    a.cfg.Store.DSN,
				Prefix: a.cfg.Store.Prefix,
				Format: a.cfg.Store.Format,
				Log:    a.log,
			})
			if err != nil {
				return err
			}
			defer func() {
				if err := st.Close(); err != nil {
					a.log.Warn("store: close", zap.Error(err))
				}
			}()

			rend, err := report.New(report.Config{
				Kind:   a.cfg.Report.Kind,
				Dir:    a.cfg.Report.Dir,
				Width:  a.cfg.Report.Width,
				Height: a.cfg.Report.Height,
				Format: a.cfg.Report.Format,
				Log:    a.log,
			})
			if err != nil {
				return err
			}

			r := &jobs.Runner{
				Store:    st,
				Renderer: rend,
				Log:      a.log,
				Seed:     a.cfg.Seed,
				Parallel: a.cfg.Parallel,
				Jobs:     a.cfg.Jobs,
			}
			res, err := r.Run(ctx, args)
			printResults(cmd.OutOrStdout(), res)
			return err
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := lint(cmd.ErrOrStderr(), a.cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jobs, store backends and renderers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "jobs:      %s\n", strings.Join(jobs.Names(), ", "))
			fmt.Fprintf(out, "stores:    %s\n", strings.Join(store.ListKinds(), ", "))
			fmt.Fprintf(out, "renderers: %s\n", strings.Join(report.ListKinds(), ", "))
			return nil
		},
	}
}

// lint prints every issue of cfg and fails when any is an error.
func lint(w io.Writer, cfg config.Config) error {
	issues := config.Validate(cfg, config.Known{Stores: store.ListKinds(), Renderers: report.ListKinds()})
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return errors.New("configuration is invalid")
	}
	return nil
}

func printResults(w io.Writer, res []jobs.Result) {
	if len(res) == 0 {
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"job", "rows", "artifacts", "reports", "took"})
	for _, r := range res {
		tw.AppendRow(table.Row{r.Job, r.Rows, len(r.Artifacts), len(r.Reports), r.Duration.Truncate(time.Millisecond)})
	}
	tw.Render()
}
