package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Wolfant/modelo-milp-agilidad/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		short, _ := cmd.Flags().GetBool("short")
		info := version.GetInfo()
		if short {
			fmt.Println(info.Short())
			return
		}
		fmt.Println(info.String())
	},
}

func init() {
	versionCmd.Flags().Bool("short", false, "print only the version number")

	rootCmd.AddCommand(versionCmd)
}
