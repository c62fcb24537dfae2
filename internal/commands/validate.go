package commands

import (
	"github.com/spf13/cobra"

	"github.com/schemaforge/schemaforge/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate [definition-path]",
	Short: "Validate a definition file",
	Long: `Parse the definition file and run the connector's validation
passes over it. Exits non-zero when the definition has errors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := schemaPath(args)

		s, conn, err := loadDefinition(path)
		if err != nil {
			return err
		}

		ui.PrintSuccess("%s is valid for %s (%d tables, %d enums)",
			path, conn.Name(), len(s.Tables), len(s.Enums))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
