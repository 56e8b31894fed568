package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Wolfant/modelo-milp-agilidad/internal/errors"
	"github.com/Wolfant/modelo-milp-agilidad/internal/input"
	"github.com/Wolfant/modelo-milp-agilidad/internal/log"
	"github.com/Wolfant/modelo-milp-agilidad/internal/planner"
	"github.com/Wolfant/modelo-milp-agilidad/internal/sprint"
	"github.com/Wolfant/modelo-milp-agilidad/internal/ux"
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Build and solve the assignment model",
	Long: `Read the planning inputs, build the assignment MILP, run a single solve
attempt and emit the assignment plan.

The plan is printed to stdout in the chosen format and the classic result
files (selected_stories.csv, assignments.csv, person_utilization.csv,
summary.txt) are written to the output directory.

Exactly one solve is attempted. If the model is infeasible the command prints
diagnostic hints and exits with a distinct code instead of relaxing
constraints on its own.`,
	RunE: runSolve,
}

func runSolve(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data")
	outDir, _ := cmd.Flags().GetString("out")
	format, _ := cmd.Flags().GetString("format")
	timeLimit, _ := cmd.Flags().GetFloat64("time-limit")

	logger := log.DefaultLogger()

	in, err := input.Load(dataDir)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("time-limit") {
		in.Config.SolverTimeLimitSeconds = timeLimit
	}

	snap, err := sprint.Normalize(in.People, in.Stories, in.Roles, in.Config)
	if err != nil {
		return err
	}
	logger.Info("inputs validated",
		"people", len(snap.People),
		"stories", len(snap.Stories),
		"dependencies", len(snap.Deps),
	)

	plan, err := planner.New(logger).Solve(cmd.Context(), snap)
	if err != nil {
		return err
	}

	formatter, err := ux.NewFormatter(format, nil)
	if err != nil {
		return err
	}
	if err := formatter.Format(plan); err != nil {
		return err
	}

	if outDir != "" {
		if err := planner.WriteReports(plan, outDir); err != nil {
			return err
		}
		logger.Info("reports written", "dir", outDir)
	}

	if !plan.Feasible() {
		return errors.NewInfeasibleError(plan.InfeasibilityHints)
	}
	return nil
}

func init() {
	solveCmd.Flags().String("data", "data", "directory with people.csv, stories.csv, roles.csv and config.yaml")
	solveCmd.Flags().String("out", "results", "directory for result files (empty to skip)")
	solveCmd.Flags().String("format", "text", "stdout format (text, json, yaml)")
	solveCmd.Flags().Float64("time-limit", 0, "solver wall-clock budget in seconds (overrides config.yaml)")

	rootCmd.AddCommand(solveCmd)
}
