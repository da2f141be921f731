package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mchurichi/logdash/internal/config"
	"github.com/mchurichi/logdash/internal/logger"
	"github.com/mchurichi/logdash/pkg/engine"
)

const defaultConfigPath = "~/.logdash/config.toml"

// app is the state shared by every subcommand once the root has loaded
// configuration.
type app struct {
	configPath string
	logDir     string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "logdash",
		Short: "Browse, filter and summarize plain-text application logs",
		Long: `logdash reads every *.log file in a directory, parses lines of the form

    2024-01-01 10:00:00 - worker1 - INFO - started job [metadata:{"job_id":42}]

and serves them through a web dashboard and JSON API, or answers one-off
queries from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", defaultConfigPath, "Path to config file (.toml, .yaml or .yml)")
	root.PersistentFlags().StringVar(&a.logDir, "log-dir", "", "Directory containing *.log files (overrides config)")

	root.AddCommand(
		newServeCmd(a),
		newQueryCmd(a),
		newStatsCmd(a),
		newVersionCmd(),
	)
	return root
}

// load reads configuration, applies persistent flag overrides and installs
// the logger into the command context.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logDir != "" {
		cfg.Logs.Dir = a.logDir
	}
	a.cfg = cfg

	l := logger.Init(cfg.Logging)
	cmd.SetContext(logger.WithContext(cmd.Context(), l))
	return nil
}

func (a *app) engine() *engine.Engine {
	return engine.New(engine.Config{
		LogDir:      config.ExpandPath(a.cfg.Logs.Dir),
		MaxLineSize: a.cfg.GetMaxLineSizeBytes(),
	})
}
