// Package runtime provides the uniform query and execution surface over a
// natively pooled database connection or an externally supplied handle.
package runtime

import (
	"context"
	"fmt"
)

// Query is a parameterized statement.
type Query struct {
	SQL  string
	Args []any
}

// ResultSet is a fully materialized query result.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// IsolationLevel names a transaction isolation level in SQL spelling.
type IsolationLevel string

const (
	IsolationReadUncommitted IsolationLevel = "READ UNCOMMITTED"
	IsolationReadCommitted   IsolationLevel = "READ COMMITTED"
	IsolationRepeatableRead  IsolationLevel = "REPEATABLE READ"
	IsolationSerializable    IsolationLevel = "SERIALIZABLE"
	IsolationSnapshot        IsolationLevel = "SNAPSHOT"
)

// ParseIsolationLevel parses a case-insensitive level name with either
// spaces or underscores.
func ParseIsolationLevel(s string) (IsolationLevel, error) {
	normalized := IsolationLevel(normalizeIsolation(s))
	switch normalized {
	case IsolationReadUncommitted, IsolationReadCommitted, IsolationRepeatableRead,
		IsolationSerializable, IsolationSnapshot:
		return normalized, nil
	default:
		return "", fmt.Errorf("unknown isolation level %q", s)
	}
}

func normalizeIsolation(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		case c == '_':
			c = ' '
		}
		out = append(out, c)
	}
	return string(out)
}

// Queryable is the uniform surface every connection exposes, regardless of
// whether it is natively pooled or externally provided.
type Queryable interface {
	// Query runs a parameterized statement and materializes the result.
	Query(ctx context.Context, q Query) (*ResultSet, error)
	// QueryRaw runs a raw SQL string with positional parameters.
	QueryRaw(ctx context.Context, sql string, args ...any) (*ResultSet, error)
	// Execute runs a parameterized statement and returns the affected row
	// count.
	Execute(ctx context.Context, q Query) (int64, error)
	// ExecuteRaw runs a raw SQL string and returns the affected row count.
	ExecuteRaw(ctx context.Context, sql string, args ...any) (int64, error)
	// RawCmd runs a command that cannot go through a prepared statement.
	RawCmd(ctx context.Context, cmd string) error
	// Version reports the server version string.
	Version(ctx context.Context) (string, error)
	// IsHealthy reports whether the connection is believed usable.
	IsHealthy() bool
	// SetTxIsolationLevel sets the isolation level for the current or next
	// transaction, per RequiresIsolationFirst.
	SetTxIsolationLevel(ctx context.Context, level IsolationLevel) error
	// RequiresIsolationFirst reports whether the isolation level must be
	// set before the transaction begins on this backend.
	RequiresIsolationFirst() bool
}
