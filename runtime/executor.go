package runtime

import (
	"context"
	"fmt"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/diagnostics"
	"github.com/schemaforge/schemaforge/migrate/diff"
	"github.com/schemaforge/schemaforge/telemetry"
)

// Executor applies migration plans over a connection pool. Plans for the
// same database must not be applied concurrently; serializing calls to
// ApplyPlan is the caller's responsibility.
type Executor struct {
	conn     connector.Connector
	renderer diff.Renderer
	tracer   *telemetry.Tracer
}

// NewExecutor creates an executor for the given connector and renderer.
func NewExecutor(conn connector.Connector, renderer diff.Renderer, tracer *telemetry.Tracer) *Executor {
	return &Executor{conn: conn, renderer: renderer, tracer: tracer}
}

// ApplyOptions tunes a single plan application.
type ApplyOptions struct {
	// IsolationLevel, when set, is applied to the transaction wrapping the
	// plan. Ordering relative to BEGIN follows the connection's
	// RequiresIsolationFirst.
	IsolationLevel IsolationLevel
}

// ApplyReport describes what a plan application did.
type ApplyReport struct {
	// Statements is the full rendered statement sequence.
	Statements []string
	// Applied is how many statements succeeded.
	Applied int
	// Transactional reports whether the steps ran inside one transaction.
	Transactional bool
	Warnings      []string
}

// ApplyPlan renders the plan and executes every statement strictly in
// order, halting at the first failure with no automatic retry. With the
// transactional DDL capability the whole plan runs in one transaction and
// is rolled back on failure; without it, already applied steps stay applied
// and the report says so up front.
func (e *Executor) ApplyPlan(ctx context.Context, p *Pool, plan *diff.Plan, opts ApplyOptions) (*ApplyReport, error) {
	statements, err := plan.Render(e.renderer)
	if err != nil {
		return nil, err
	}

	report := &ApplyReport{
		Statements:    statements,
		Transactional: e.conn.HasCapability(connector.CapabilityTransactionalDDL),
	}
	for _, w := range plan.Warnings {
		report.Warnings = append(report.Warnings, w)
	}
	if !report.Transactional {
		report.Warnings = append(report.Warnings,
			diagnostics.NewNonTransactionalDDLWarning(e.conn.Name(), diagnostics.EmptySpan()).Message())
	}
	if len(statements) == 0 {
		return report, nil
	}

	conn, err := p.CheckOut(ctx)
	if err != nil {
		return report, err
	}
	defer conn.Close()

	if opts.IsolationLevel != "" && conn.RequiresIsolationFirst() {
		if err := conn.SetTxIsolationLevel(ctx, opts.IsolationLevel); err != nil {
			return report, fmt.Errorf("setting isolation level: %w", err)
		}
	}

	inTx := false
	if report.Transactional {
		if err := conn.RawCmd(ctx, e.beginStatement()); err != nil {
			return report, fmt.Errorf("starting transaction: %w", err)
		}
		inTx = true
	}

	if opts.IsolationLevel != "" && !conn.RequiresIsolationFirst() {
		if err := conn.SetTxIsolationLevel(ctx, opts.IsolationLevel); err != nil {
			e.rollback(ctx, conn, inTx)
			return report, fmt.Errorf("setting isolation level: %w", err)
		}
	}

	for i, stmt := range statements {
		span := e.tracer.StartSpan(ctx, "executor.apply_step")
		span.SetAttribute(telemetry.AttrDBType, e.conn.ProviderName())
		span.SetAttribute(telemetry.AttrStatement, stmt)

		err := conn.RawCmd(ctx, stmt)
		span.End(err)
		if err != nil {
			e.rollback(ctx, conn, inTx)
			return report, &StepError{Index: i, Statement: stmt, Err: err}
		}
		report.Applied++
	}

	if inTx {
		if err := conn.RawCmd(ctx, "COMMIT"); err != nil {
			return report, fmt.Errorf("committing transaction: %w", err)
		}
	}
	return report, nil
}

func (e *Executor) beginStatement() string {
	if e.conn.Flavour() == connector.FlavourSQLServer {
		return "BEGIN TRANSACTION"
	}
	return "BEGIN"
}

func (e *Executor) rollback(ctx context.Context, conn *Connection, inTx bool) {
	if !inTx {
		return
	}
	// Best effort; the original failure is what the caller needs to see.
	_ = conn.RawCmd(ctx, "ROLLBACK")
}
