// Command tabjobs runs the tabular batch jobs.
//
//	tabjobs run [job...]   run the named jobs, or all of them
//	tabjobs validate       lint the configuration and exit
//	tabjobs list           list jobs, stores and renderers
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tabjobs/internal/config"
	"tabjobs/internal/logging"

	// register every store backend and renderer; the config picks one.
	_ "tabjobs/internal/report/png"
	_ "tabjobs/internal/report/text"
	_ "tabjobs/internal/store/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// app is the state shared by subcommands once the root has loaded the
// configuration.
type app struct {
	cfg config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "tabjobs",
		Short: "Run tabular batch jobs",
		Long: `tabjobs generates, cleans, transforms and summarizes tabular batches.

Each job persists its raw input and processed output through the configured
artifact store and renders its charts with the configured report renderer.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			fs := cmd.Root().PersistentFlags()
			path, _ := fs.GetString("config")
			cfg, err := config.Load(path, fs)
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(newRunCmd(a), newValidateCmd(a), newListCmd())
	return root
}
