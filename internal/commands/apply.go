package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/internal/debug"
	"github.com/schemaforge/schemaforge/internal/ui"
	"github.com/schemaforge/schemaforge/internal/version"
	"github.com/schemaforge/schemaforge/migrate/diff"
	"github.com/schemaforge/schemaforge/migrate/history"
	"github.com/schemaforge/schemaforge/migrate/shadow"
	"github.com/schemaforge/schemaforge/migrate/sqlgen"
	"github.com/schemaforge/schemaforge/runtime"
	"github.com/schemaforge/schemaforge/schema"
	"github.com/schemaforge/schemaforge/telemetry"
)

var (
	flagApplyForce     bool
	flagApplyName      string
	flagApplyIsolation string
	flagApplyTrace     bool
	flagApplyShadowURL string
)

var applyCmd = &cobra.Command{
	Use:   "apply [definition-path]",
	Short: "Apply the migration plan to the database",
	Long: `Diff the definition against the database and execute the resulting
plan. Destructive plans ask for confirmation unless --force is given. Every
applied plan is recorded in the migration ledger.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := schemaPath(args)

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

		tracer := telemetry.NewTracer()
		rpool := runtime.NewNativePool(p, conn, tracer)

		if err := checkServerVersion(cmd, rpool, conn.MinimumServerVersion()); err != nil {
			return err
		}

		live, err := introspectDatabase(ctx, p, conn)
		if err != nil {
			return err
		}

		plan, err := diff.NewDiffer(conn).Diff(live, desired)
		if err != nil {
			return err
		}
		if plan.IsEmpty() {
			ui.PrintSuccess("Database is already in sync")
			return nil
		}

		ui.PrintPlan(plan)

		if shadowURL := resolveShadowURL(); shadowURL != "" {
			if err := verifyOnShadow(ctx, conn, shadowURL, live, desired); err != nil {
				return err
			}
			ui.PrintSuccess("Plan verified against the shadow database")
		}

		if plan.RequiresDataMigration() {
			ui.PrintWarning("Some steps cannot succeed on non-empty tables without a manual data migration")
		}
		if plan.HasDestructiveChanges() {
			confirmed := flagApplyForce || cfg.ForceDestructive
			if !confirmed {
				prompt := &survey.Confirm{
					Message: "The plan contains destructive changes that will lose data. Apply anyway?",
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return err
				}
			}
			if !confirmed {
				ui.PrintInfo("Aborted, no changes applied")
				return nil
			}
		}

		renderer, err := sqlgen.ForConnector(conn)
		if err != nil {
			return err
		}

		opts := runtime.ApplyOptions{}
		if flagApplyIsolation != "" {
			level, err := runtime.ParseIsolationLevel(flagApplyIsolation)
			if err != nil {
				return err
			}
			opts.IsolationLevel = level
		}

		ledger := history.NewManager(p.DB(), conn)
		if err := ledger.Init(ctx); err != nil {
			return err
		}

		executor := runtime.NewExecutor(conn, renderer, tracer)
		start := time.Now()
		report, applyErr := executor.ApplyPlan(ctx, rpool, plan, opts)

		if flagApplyTrace {
			if err := tracer.Export(os.Stderr); err != nil {
				debug.Warn("exporting trace", "error", err)
			}
		}

		if applyErr != nil {
			var stepErr *runtime.StepError
			if errors.As(applyErr, &stepErr) {
				ui.PrintError("Statement %d failed: %s", stepErr.Index+1, stepErr.Statement)
			}
			return applyErr
		}

		for _, w := range report.Warnings {
			ui.PrintWarning("%s", w)
		}

		rec := &history.Record{
			Name:          migrationName(),
			AppliedAt:     time.Now().UTC(),
			Checksum:      history.Checksum(strings.Join(report.Statements, "\n")),
			ExecutionTime: time.Since(start),
		}
		if err := ledger.RecordWithSnapshot(ctx, rec, live); err != nil {
			ui.PrintWarning("Plan applied but recording it in the ledger failed: %v", err)
		}

		ui.PrintSuccess("Applied %d statement(s) as %s", report.Applied, rec.Name)
		return nil
	},
}

func resolveShadowURL() string {
	if flagApplyShadowURL != "" {
		return flagApplyShadowURL
	}
	return cfg.ShadowDatabaseURL
}

// verifyOnShadow replays the live schema and the candidate plan on the
// shadow database so rendering problems surface before the real apply.
func verifyOnShadow(ctx context.Context, conn connector.Connector, url string, live, desired *schema.Schema) error {
	db, err := shadow.Connect(providerName(conn), conn, url)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Verify(ctx, live, desired); err != nil {
		return err
	}
	return nil
}

// checkServerVersion refuses to apply against servers older than the
// connector's minimum supported release.
func checkServerVersion(cmd *cobra.Command, p *runtime.Pool, minimum string) error {
	conn, err := p.CheckOut(cmd.Context())
	if err != nil {
		return err
	}
	defer conn.Close()

	serverVersion, err := conn.Version(cmd.Context())
	if err != nil {
		return fmt.Errorf("querying server version: %w", err)
	}
	debug.Debug("server version", "version", serverVersion, "minimum", minimum)
	return version.CheckServerVersion(serverVersion, minimum)
}

func migrationName() string {
	stamp := time.Now().UTC().Format("20060102150405")
	if flagApplyName != "" {
		return stamp + "_" + flagApplyName
	}
	return stamp + "_migration"
}

func init() {
	applyCmd.Flags().BoolVar(&flagApplyForce, "force", false, "apply destructive changes without confirmation")
	applyCmd.Flags().StringVar(&flagApplyName, "name", "", "name recorded in the migration ledger")
	applyCmd.Flags().StringVar(&flagApplyIsolation, "isolation", "", "transaction isolation level for the plan")
	applyCmd.Flags().BoolVar(&flagApplyTrace, "trace", false, "export collected trace spans to stderr")
	applyCmd.Flags().StringVar(&flagApplyShadowURL, "shadow-url", "", "verify the plan against this shadow database first")
	rootCmd.AddCommand(applyCmd)
}
