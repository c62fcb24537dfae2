// Package introspect reads a live database into the shared schema
// representation so it can be diffed against a declared schema.
package introspect

import (
	"context"
	"database/sql"
	"strings"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/schema"
)

// Introspector reads a live database schema.
type Introspector interface {
	Introspect(ctx context.Context) (*schema.Schema, error)
}

// ledgerTable is maintained by the history package and never reported.
const ledgerTable = "_schemaforge_migrations"

// ForConnector returns the introspector for the connector's backend.
// Cockroach shares the Postgres catalogue.
func ForConnector(db *sql.DB, conn connector.Connector) (Introspector, error) {
	switch conn.Flavour() {
	case connector.FlavourPostgres, connector.FlavourCockroach:
		return &postgresIntrospector{db: db, conn: conn}, nil
	case connector.FlavourMySQL:
		return &mysqlIntrospector{db: db, conn: conn}, nil
	case connector.FlavourSQLite:
		return &sqliteIntrospector{db: db, conn: conn}, nil
	case connector.FlavourSQLServer:
		return &mssqlIntrospector{db: db, conn: conn}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// parseReferentialAction maps a catalogue update/delete rule to an action.
// Unknown rules fall back to NO ACTION, the SQL default.
func parseReferentialAction(rule string) connector.ReferentialAction {
	switch strings.ToUpper(strings.TrimSpace(rule)) {
	case "CASCADE":
		return connector.ReferentialActionCascade
	case "SET NULL":
		return connector.ReferentialActionSetNull
	case "SET DEFAULT":
		return connector.ReferentialActionSetDefault
	case "RESTRICT":
		return connector.ReferentialActionRestrict
	default:
		return connector.ReferentialActionNoAction
	}
}

// parseDefault interprets a raw catalogue default expression. Sequence
// defaults return nil because they surface as AutoIncrement instead.
func parseDefault(raw string, scalar connector.ScalarType) *schema.DefaultValue {
	expr := strings.TrimSpace(raw)
	if expr == "" {
		return nil
	}

	lower := strings.ToLower(expr)
	if strings.HasPrefix(lower, "nextval(") {
		return nil
	}

	// Postgres appends a cast to text defaults ('abc'::text).
	if idx := strings.Index(expr, "::"); idx > 0 {
		expr = expr[:idx]
		lower = strings.ToLower(expr)
	}

	switch {
	case lower == "now()" || lower == "getdate()" || lower == "current_timestamp" ||
		strings.HasPrefix(lower, "current_timestamp("):
		return &schema.DefaultValue{Kind: schema.DefaultFunction, Value: "now"}
	case lower == "gen_random_uuid()" || lower == "uuid_generate_v4()" || lower == "uuid()" || lower == "newid()":
		return &schema.DefaultValue{Kind: schema.DefaultFunction, Value: "uuid"}
	}

	if len(expr) >= 2 && expr[0] == '\'' && expr[len(expr)-1] == '\'' {
		unquoted := strings.ReplaceAll(expr[1:len(expr)-1], "''", "'")
		return &schema.DefaultValue{Kind: schema.DefaultLiteral, Value: unquoted}
	}

	if isPlainLiteral(expr, scalar) {
		return &schema.DefaultValue{Kind: schema.DefaultLiteral, Value: normalizeBoolLiteral(expr, scalar)}
	}

	return &schema.DefaultValue{Kind: schema.DefaultDBGenerated, Value: expr}
}

func isPlainLiteral(expr string, scalar connector.ScalarType) bool {
	lower := strings.ToLower(expr)
	if lower == "true" || lower == "false" || lower == "0" || lower == "1" {
		return true
	}
	for _, r := range expr {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' {
			return false
		}
	}
	return true
}

func normalizeBoolLiteral(expr string, scalar connector.ScalarType) string {
	if scalar != connector.ScalarTypeBoolean {
		return expr
	}
	switch strings.ToLower(expr) {
	case "1", "true":
		return "true"
	case "0", "false":
		return "false"
	}
	return expr
}

// splitGroupedColumns splits a comma-joined column list from GROUP_CONCAT
// or a trimmed Postgres array literal.
func splitGroupedColumns(joined string) []string {
	joined = strings.Trim(joined, "{}")
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	for i := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(parts[i]), `"`)
	}
	return parts
}
