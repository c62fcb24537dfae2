// Package sqlgen renders migration plan steps into DDL statements, one
// renderer per backend.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/migrate/diff"
	"github.com/schemaforge/schemaforge/schema"
)

// ForConnector returns the renderer for the given connector. Renderers may
// accumulate state across the steps they render, so plans destined for
// different databases need separate renderers.
func ForConnector(conn connector.Connector) (diff.Renderer, error) {
	switch conn.Flavour() {
	case connector.FlavourPostgres, connector.FlavourCockroach:
		return &postgresRenderer{conn: conn}, nil
	case connector.FlavourMySQL:
		return &mysqlRenderer{conn: conn, enums: map[string][]string{}}, nil
	case connector.FlavourSQLite:
		return &sqliteRenderer{conn: conn}, nil
	case connector.FlavourSQLServer:
		return &mssqlRenderer{conn: conn}, nil
	default:
		return nil, fmt.Errorf("no renderer for provider %q", conn.ProviderName())
	}
}

// dialect collects what the shared rendering helpers need to know about a
// backend.
type dialect interface {
	quote(ident string) string
	columnType(col *schema.Column) string
	autoIncrementColumn(col *schema.Column) (clause string, handled bool)
	defaultFunction(name string) string
}

// columnDefinition renders one column for CREATE TABLE or ADD COLUMN.
func columnDefinition(d dialect, col *schema.Column) string {
	var b strings.Builder
	b.WriteString(d.quote(col.Name))
	b.WriteString(" ")

	if clause, handled := d.autoIncrementColumn(col); handled && col.AutoIncrement {
		b.WriteString(clause)
	} else {
		b.WriteString(d.columnType(col))
	}

	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if col.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(renderDefault(d, col))
	}
	return b.String()
}

func renderDefault(d dialect, col *schema.Column) string {
	def := col.Default
	switch def.Kind {
	case DefaultKindFunction:
		return d.defaultFunction(def.Value)
	case DefaultKindDBGenerated:
		return def.Value
	default:
		switch col.Type {
		case connector.ScalarTypeString, connector.ScalarTypeDateTime, connector.ScalarTypeBytes, connector.ScalarTypeEnum:
			return "'" + strings.ReplaceAll(def.Value, "'", "''") + "'"
		default:
			return def.Value
		}
	}
}

// Aliases keep the switch above readable.
const (
	DefaultKindFunction    = schema.DefaultFunction
	DefaultKindDBGenerated = schema.DefaultDBGenerated
)

func quotedList(d dialect, names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = d.quote(n)
	}
	return strings.Join(parts, ", ")
}

func referentialActionSQL(a connector.ReferentialAction) string {
	switch a {
	case connector.ReferentialActionRestrict:
		return "RESTRICT"
	case connector.ReferentialActionCascade:
		return "CASCADE"
	case connector.ReferentialActionSetNull:
		return "SET NULL"
	case connector.ReferentialActionSetDefault:
		return "SET DEFAULT"
	default:
		return "NO ACTION"
	}
}

func createTableSQL(d dialect, table *schema.Table) string {
	var defs []string
	for i := range table.Columns {
		defs = append(defs, "    "+columnDefinition(d, &table.Columns[i]))
	}
	if pk := table.PrimaryKey; pk != nil {
		def := "    "
		if pk.Name != "" {
			def += "CONSTRAINT " + d.quote(pk.Name) + " "
		}
		def += "PRIMARY KEY (" + quotedList(d, pk.Columns) + ")"
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", d.quote(table.Name), strings.Join(defs, ",\n"))
}

func addForeignKeySQL(d dialect, table string, fk *schema.ForeignKey) string {
	return fmt.Sprintf(
		"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
		d.quote(table), d.quote(fk.ConstraintName), quotedList(d, fk.Columns),
		d.quote(fk.ReferencedTable), quotedList(d, fk.ReferencedColumns),
		referentialActionSQL(fk.OnDelete), referentialActionSQL(fk.OnUpdate))
}

// createIndexSQL renders an index. preColumns lands between the table name
// and the column list (Postgres puts USING there), postColumns after the
// list (where MySQL wants it).
func createIndexSQL(d dialect, table string, idx *schema.Index, preColumns, postColumns string) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s%s (%s)%s",
		unique, d.quote(idx.Name), d.quote(table), preColumns, quotedList(d, idx.Columns), postColumns)
}
