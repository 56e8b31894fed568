package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Wolfant/modelo-milp-agilidad/internal/log"
)

var (
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "agilidad",
	Short: "Sprint planning MILP solver",
	Long: `agilidad assigns backlog stories to people for one planning interval,
maximizing delivered value subject to capacity, dependency, role-coverage and
quality constraints.

It reads people.csv, stories.csv, roles.csv and config.yaml from a data
directory, builds a mixed-integer linear program, solves it once, and writes
the optimal (or best-found) assignment plan.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := log.DefaultConfig()
		cfg.Level = log.ParseLevel(logLevelFlag)
		cfg.Format = log.ParseFormat(logFormatFlag)
		log.SetDefaultLogger(log.New(cfg))
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with the given context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "text", "log format (text, json)")
}
