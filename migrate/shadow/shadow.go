// Package shadow dry-runs migration plans against a disposable shadow
// database before they touch the real one. The shadow database is reset,
// replayed to the live state and then the candidate plan is applied, so a
// plan that renders to broken SQL fails here instead of mid-apply.
package shadow

import (
	"context"
	"fmt"
	"strings"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/migrate/diff"
	"github.com/schemaforge/schemaforge/migrate/introspect"
	"github.com/schemaforge/schemaforge/migrate/sqlgen"
	"github.com/schemaforge/schemaforge/runtime"
	"github.com/schemaforge/schemaforge/runtime/pool"
	"github.com/schemaforge/schemaforge/schema"
	"github.com/schemaforge/schemaforge/telemetry"
)

// Database is a connected shadow database.
type Database struct {
	conn connector.Connector
	pool *pool.Pool
}

// DeriveURL derives a shadow connection string from the main one by
// suffixing the database name with _shadow. Used when no explicit shadow
// URL is configured.
func DeriveURL(conn connector.Connector, mainURL string) string {
	if conn.Flavour() == connector.FlavourSQLite {
		if strings.Contains(mainURL, ".db") {
			return strings.Replace(mainURL, ".db", "_shadow.db", 1)
		}
		return mainURL + "_shadow.db"
	}
	if idx := strings.LastIndex(mainURL, "/"); idx >= 0 && idx < len(mainURL)-1 {
		name := mainURL[idx+1:]
		if q := strings.Index(name, "?"); q >= 0 {
			return mainURL[:idx+1] + name[:q] + "_shadow" + name[q:]
		}
		return mainURL + "_shadow"
	}
	return mainURL + "_shadow"
}

// Connect opens the shadow database. The database must already exist and
// the caller must have DDL rights on it.
func Connect(provider string, conn connector.Connector, url string) (*Database, error) {
	if err := conn.ValidateURL(url); err != nil {
		return nil, fmt.Errorf("shadow database URL: %w", err)
	}

	// The mysql and sqlite drivers take bare DSNs without the scheme.
	dsn := url
	switch conn.Flavour() {
	case connector.FlavourMySQL:
		dsn = strings.TrimPrefix(dsn, "mysql://")
	case connector.FlavourSQLite:
		dsn = strings.TrimPrefix(dsn, "file:")
	}

	p, err := pool.Open(provider, dsn, pool.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return &Database{conn: conn, pool: p}, nil
}

// Verify replays the live schema onto a clean shadow database and applies
// the candidate plan on top of it. The returned report describes the
// candidate plan's application on the shadow.
func (d *Database) Verify(ctx context.Context, live, desired *schema.Schema) (*runtime.ApplyReport, error) {
	renderer, err := sqlgen.ForConnector(d.conn)
	if err != nil {
		return nil, err
	}

	if err := d.Reset(ctx); err != nil {
		return nil, fmt.Errorf("resetting shadow database: %w", err)
	}

	tracer := telemetry.NewTracer()
	rpool := runtime.NewNativePool(d.pool, d.conn, tracer)
	executor := runtime.NewExecutor(d.conn, renderer, tracer)
	differ := diff.NewDiffer(d.conn)

	base, err := differ.Diff(&schema.Schema{}, live)
	if err != nil {
		return nil, err
	}
	if _, err := executor.ApplyPlan(ctx, rpool, base, runtime.ApplyOptions{}); err != nil {
		return nil, fmt.Errorf("replaying live schema on shadow: %w", err)
	}

	plan, err := differ.Diff(live, desired)
	if err != nil {
		return nil, err
	}
	report, err := executor.ApplyPlan(ctx, rpool, plan, runtime.ApplyOptions{})
	if err != nil {
		return nil, fmt.Errorf("applying plan on shadow: %w", err)
	}
	return report, nil
}

// Reset drops everything in the shadow database by diffing its introspected
// state against an empty schema and applying the resulting plan.
func (d *Database) Reset(ctx context.Context) error {
	intro, err := introspect.ForConnector(d.pool.DB(), d.conn)
	if err != nil {
		return err
	}
	live, err := intro.Introspect(ctx)
	if err != nil {
		return err
	}

	plan, err := diff.NewDiffer(d.conn).Diff(live, &schema.Schema{})
	if err != nil {
		return err
	}
	if plan.IsEmpty() {
		return nil
	}

	renderer, err := sqlgen.ForConnector(d.conn)
	if err != nil {
		return err
	}
	tracer := telemetry.NewTracer()
	rpool := runtime.NewNativePool(d.pool, d.conn, tracer)
	_, err = runtime.NewExecutor(d.conn, renderer, tracer).ApplyPlan(ctx, rpool, plan, runtime.ApplyOptions{})
	return err
}

// Close releases the shadow database connection.
func (d *Database) Close() error {
	return d.pool.Close()
}
