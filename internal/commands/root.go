// Package commands wires the schemaforge CLI together.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/schemaforge/schemaforge/internal/config"
	"github.com/schemaforge/schemaforge/internal/debug"
	"github.com/schemaforge/schemaforge/internal/ui"
)

var (
	flagDebug    bool
	flagSchema   string
	flagURL      string
	flagProvider string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "schemaforge",
	Short: "Database schema migration toolkit",
	Long: `schemaforge keeps a live database in sync with a declarative
table definition file. It validates definitions, diffs them against the
database, and applies the resulting migration plans.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug.Init(flagDebug)

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		debug.Debug("configuration loaded",
			"schema_path", cfg.SchemaPath, "provider", cfg.Provider)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagSchema, "schema", "", "path to the definition file")
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "database connection string")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "database provider override")
}

// Execute runs the CLI and reports whether it failed.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("%v", err)
		return err
	}
	return nil
}
