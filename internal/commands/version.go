package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schemaforge/schemaforge/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Get().FullString())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
