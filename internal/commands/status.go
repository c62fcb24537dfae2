package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/internal/ui"
	"github.com/schemaforge/schemaforge/migrate/history"
	"github.com/schemaforge/schemaforge/schema"
)

var statusCmd = &cobra.Command{
	Use:   "status [definition-path]",
	Short: "Show the migration ledger",
	Long:  "List every migration recorded in the ledger, newest last.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// The definition is optional here; the ledger can be inspected with
		// just a URL and provider.
		var s *schema.Schema
		var conn connector.Connector
		if path := schemaPath(args); path != "" {
			if _, err := os.Stat(path); err == nil {
				var err error
				s, conn, err = loadDefinition(path)
				if err != nil {
					return err
				}
			}
		}
		if conn == nil {
			var err error
			conn, err = resolveConnector(nil)
			if err != nil {
				return err
			}
		}

		url, err := databaseURL(s)
		if err != nil {
			return err
		}
		p, err := openPool(conn, url)
		if err != nil {
			return err
		}
		defer p.Close()

		ledger := history.NewManager(p.DB(), conn)
		if err := ledger.Init(ctx); err != nil {
			return err
		}

		records, err := ledger.All(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			ui.PrintInfo("No migrations recorded yet")
			return nil
		}

		rows := make([][]string, 0, len(records))
		for _, rec := range records {
			state := "applied"
			if rec.RolledBack {
				state = "rolled back"
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", rec.ID),
				rec.Name,
				rec.AppliedAt.Format("2006-01-02 15:04:05"),
				shortChecksum(rec.Checksum),
				state,
			})
		}
		ui.PrintTable([]string{"ID", "Name", "Applied At", "Checksum", "State"}, rows)
		return nil
	},
}

func shortChecksum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
