package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Wolfant/modelo-milp-agilidad/internal/input"
	"github.com/Wolfant/modelo-milp-agilidad/internal/sprint"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate planning inputs without solving",
	Long: `Load and cross-reference the planning inputs, reporting configuration
errors (unknown references, cyclic dependencies, unstaffed roles, bad
numbers) without building or solving the model.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data")

	in, err := input.Load(dataDir)
	if err != nil {
		return err
	}

	snap, err := sprint.Normalize(in.People, in.Stories, in.Roles, in.Config)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Inputs are consistent\n")
	fmt.Printf("  people:        %d (total %.1fh)\n", len(snap.People), snap.TotalCapacity)
	fmt.Printf("  stories:       %d (%d dependency edges)\n", len(snap.Stories), len(snap.Deps))
	fmt.Printf("  roles:         %d\n", len(snap.Roles))
	for _, role := range snapRoles(snap) {
		fmt.Printf("    %-6s %6.1fh raw, %6.1fh effective\n", role, snap.RoleCapacity[role], snap.EffectiveRoleCapacity[role])
	}
	return nil
}

func snapRoles(snap *sprint.Snapshot) []string {
	roles := make([]string, 0, len(snap.RoleCapacity))
	for r := range snap.RoleCapacity {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}

func init() {
	validateCmd.Flags().String("data", "data", "directory with people.csv, stories.csv, roles.csv and config.yaml")

	rootCmd.AddCommand(validateCmd)
}
