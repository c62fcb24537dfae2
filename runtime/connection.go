package runtime

import (
	"context"
	"database/sql"
	"time"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/telemetry"
)

// Connection is a checked-out connection: either a dedicated connection from
// the native pool or a passthrough to an external handle. External calls are
// wrapped in tracing scopes; the native path stays bare because the pool
// already accounts for it.
type Connection struct {
	native   *sql.Conn
	external Queryable

	provider string
	flavour  connector.Flavour
	tracer   *telemetry.Tracer
}

// IsExternal reports whether the connection wraps an external handle.
func (c *Connection) IsExternal() bool {
	return c.external != nil
}

// Close returns a native connection to its pool. External handles have
// caller-managed lifetimes and Close is a no-op for them.
func (c *Connection) Close() error {
	if c.native != nil {
		return c.native.Close()
	}
	return nil
}

func (c *Connection) span(ctx context.Context, name, statement string) *telemetry.ActiveSpan {
	span := c.tracer.StartSpan(ctx, name)
	span.SetAttribute(telemetry.AttrDBType, c.provider)
	if statement != "" {
		span.SetAttribute(telemetry.AttrStatement, statement)
	}
	return span
}

// Query implements Queryable.
func (c *Connection) Query(ctx context.Context, q Query) (*ResultSet, error) {
	if c.external != nil {
		span := c.span(ctx, "runtime_connection.external.query", q.SQL)
		rs, err := c.external.Query(ctx, q)
		span.End(err)
		return rs, err
	}
	return c.queryNative(ctx, q.SQL, q.Args...)
}

// QueryRaw implements Queryable.
func (c *Connection) QueryRaw(ctx context.Context, sql string, args ...any) (*ResultSet, error) {
	if c.external != nil {
		span := c.span(ctx, "runtime_connection.external.query_raw", sql)
		rs, err := c.external.QueryRaw(ctx, sql, args...)
		span.End(err)
		return rs, err
	}
	return c.queryNative(ctx, sql, args...)
}

// Execute implements Queryable.
func (c *Connection) Execute(ctx context.Context, q Query) (int64, error) {
	if c.external != nil {
		span := c.span(ctx, "runtime_connection.external.execute", q.SQL)
		n, err := c.external.Execute(ctx, q)
		span.End(err)
		return n, err
	}
	return c.executeNative(ctx, q.SQL, q.Args...)
}

// ExecuteRaw implements Queryable.
func (c *Connection) ExecuteRaw(ctx context.Context, sql string, args ...any) (int64, error) {
	if c.external != nil {
		span := c.span(ctx, "runtime_connection.external.execute_raw", sql)
		n, err := c.external.ExecuteRaw(ctx, sql, args...)
		span.End(err)
		return n, err
	}
	return c.executeNative(ctx, sql, args...)
}

// RawCmd implements Queryable.
func (c *Connection) RawCmd(ctx context.Context, cmd string) error {
	if c.external != nil {
		span := c.span(ctx, "runtime_connection.external.raw_cmd", cmd)
		err := c.external.RawCmd(ctx, cmd)
		span.End(err)
		return err
	}
	_, err := c.native.ExecContext(ctx, cmd)
	return err
}

// Version implements Queryable.
func (c *Connection) Version(ctx context.Context) (string, error) {
	if c.external != nil {
		span := c.span(ctx, "runtime_connection.external.version", "")
		v, err := c.external.Version(ctx)
		span.End(err)
		return v, err
	}

	var query string
	switch c.flavour {
	case connector.FlavourSQLite:
		query = "SELECT sqlite_version()"
	case connector.FlavourSQLServer:
		query = "SELECT @@VERSION"
	default:
		query = "SELECT version()"
	}

	var version string
	if err := c.native.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}

// IsHealthy implements Queryable.
func (c *Connection) IsHealthy() bool {
	if c.external != nil {
		return c.external.IsHealthy()
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return c.native.PingContext(ctx) == nil
}

// SetTxIsolationLevel implements Queryable.
func (c *Connection) SetTxIsolationLevel(ctx context.Context, level IsolationLevel) error {
	if c.external != nil {
		span := c.span(ctx, "runtime_connection.external.set_tx_isolation_level", "")
		err := c.external.SetTxIsolationLevel(ctx, level)
		span.End(err)
		return err
	}
	_, err := c.native.ExecContext(ctx, "SET TRANSACTION ISOLATION LEVEL "+string(level))
	return err
}

// RequiresIsolationFirst implements Queryable. MySQL and SQL Server apply
// the level to the next transaction, so it must be set before BEGIN.
func (c *Connection) RequiresIsolationFirst() bool {
	if c.external != nil {
		return c.external.RequiresIsolationFirst()
	}
	return c.flavour == connector.FlavourMySQL || c.flavour == connector.FlavourSQLServer
}

func (c *Connection) queryNative(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	rows, err := c.native.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResultSet(rows)
}

func (c *Connection) executeNative(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.native.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanResultSet(rows *sql.Rows) (*ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, values)
	}
	return rs, rows.Err()
}
