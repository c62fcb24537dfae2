package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/schemaforge/schemaforge/internal/ui"
	"github.com/schemaforge/schemaforge/internal/watch"
	"github.com/schemaforge/schemaforge/migrate/diff"
	"github.com/schemaforge/schemaforge/migrate/sqlgen"
)

var (
	flagDiffSQL   bool
	flagDiffWatch bool
)

var diffCmd = &cobra.Command{
	Use:   "diff [definition-path]",
	Short: "Compare the definition against the database",
	Long: `Introspect the database, diff it against the definition file and
print the migration plan that would bring the database in sync. Nothing is
applied. With --watch the diff re-runs whenever the definition changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := schemaPath(args)

		if !flagDiffWatch {
			return runDiff(cmd.Context(), path)
		}

		watcher, err := watch.New(path, func() error {
			if err := runDiff(context.Background(), path); err != nil {
				ui.PrintError("%v", err)
			}
			ui.PrintInfo("Watching %s for changes, press Ctrl+C to stop", path)
			return nil
		})
		if err != nil {
			return err
		}
		if err := watcher.Start(); err != nil {
			watcher.Stop()
			return err
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		return watcher.Stop()
	},
}

func runDiff(ctx context.Context, path string) error {
	desired, conn, err := loadDefinition(path)
	if err != nil {
		return err
	}

	url, err := databaseURL(desired)
	if err != nil {
		return err
	}
	p, err := openPool(conn, url)
	if err != nil {
		return err
	}
	defer p.Close()

	live, err := introspectDatabase(ctx, p, conn)
	if err != nil {
		return err
	}

	plan, err := diff.NewDiffer(conn).Diff(live, desired)
	if err != nil {
		return err
	}

	ui.PrintPlan(plan)

	if flagDiffSQL && !plan.IsEmpty() {
		renderer, err := sqlgen.ForConnector(conn)
		if err != nil {
			return err
		}
		statements, err := plan.Render(renderer)
		if err != nil {
			return err
		}
		ui.PrintSQL(statements)
	}
	return nil
}

func init() {
	diffCmd.Flags().BoolVar(&flagDiffSQL, "sql", false, "print the rendered SQL statements")
	diffCmd.Flags().BoolVar(&flagDiffWatch, "watch", false, "re-run on definition changes")
	rootCmd.AddCommand(diffCmd)
}
