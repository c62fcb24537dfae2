package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/internal/ui"
	"github.com/schemaforge/schemaforge/schema/sdl"
)

var flagIntrospectOut string

var introspectCmd = &cobra.Command{
	Use:   "introspect",
	Short: "Generate a definition file from a live database",
	Long: `Read the database catalogue and write the equivalent definition
text. With --out the definition is written to a file, otherwise to stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := databaseURL(nil)
		if err != nil {
			return err
		}

		provider := flagProvider
		if provider == "" {
			provider = cfg.Provider
		}
		if provider == "" {
			provider = detectProvider(url)
		}
		if provider == "" {
			return fmt.Errorf("could not detect the provider from the URL; pass --provider")
		}

		conn, err := connector.ForProvider(provider)
		if err != nil {
			return err
		}
		p, err := openPool(conn, url)
		if err != nil {
			return err
		}
		defer p.Close()

		live, err := introspectDatabase(cmd.Context(), p, conn)
		if err != nil {
			return err
		}

		text := sdl.Format(live)
		if flagIntrospectOut == "" {
			fmt.Print(text)
			return nil
		}

		if err := os.WriteFile(flagIntrospectOut, []byte(text), 0644); err != nil {
			return err
		}
		ui.PrintSuccess("Definition written to %s (%d tables, %d enums)",
			flagIntrospectOut, len(live.Tables), len(live.Enums))
		return nil
	},
}

func init() {
	introspectCmd.Flags().StringVar(&flagIntrospectOut, "out", "", "write the definition to this file")
	rootCmd.AddCommand(introspectCmd)
}
