package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/schema"
)

// sqliteIntrospector reads the main database through PRAGMA statements.
type sqliteIntrospector struct {
	db   *sql.DB
	conn connector.Connector
}

func (i *sqliteIntrospector) Introspect(ctx context.Context) (*schema.Schema, error) {
	out := &schema.Schema{
		Datasource: &schema.Datasource{
			Provider:     i.conn.ProviderName(),
			RelationMode: connector.RelationModeForeignKeys,
		},
	}

	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if name == ledgerTable {
			continue
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, name := range names {
		table, err := i.introspectTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		out.Tables = append(out.Tables, table)
	}

	return out, nil
}

func (i *sqliteIntrospector) introspectTable(ctx context.Context, tableName string) (schema.Table, error) {
	table := schema.Table{Name: tableName}

	columns, pk, err := i.introspectColumns(ctx, tableName)
	if err != nil {
		return table, err
	}
	table.Columns = columns
	table.PrimaryKey = pk

	if table.Indexes, err = i.introspectIndexes(ctx, tableName); err != nil {
		return table, err
	}
	if table.ForeignKeys, err = i.introspectForeignKeys(ctx, tableName); err != nil {
		return table, err
	}

	return table, nil
}

// introspectColumns reads table_info, which carries the primary key
// positions alongside the column metadata.
func (i *sqliteIntrospector) introspectColumns(ctx context.Context, tableName string) ([]schema.Column, *schema.PrimaryKey, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", tableName))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	type pkColumn struct {
		name     string
		position int
	}

	var columns []schema.Column
	var pkColumns []pkColumn
	for rows.Next() {
		var (
			cid, notNull, pkPosition int
			name, declaredType       string
			defaultExpr              sql.NullString
		)
		if err := rows.Scan(&cid, &name, &declaredType, &notNull, &defaultExpr, &pkPosition); err != nil {
			return nil, nil, err
		}

		col := schema.Column{
			Name:     name,
			Nullable: notNull == 0,
		}
		col.Type, col.NativeType = mapSQLiteType(declaredType)

		// An INTEGER PRIMARY KEY column is an alias for the rowid.
		if pkPosition == 1 && strings.EqualFold(declaredType, "INTEGER") {
			col.AutoIncrement = true
			col.Nullable = false
		}

		if defaultExpr.Valid {
			col.Default = parseDefault(defaultExpr.String, col.Type)
		}

		columns = append(columns, col)
		if pkPosition > 0 {
			pkColumns = append(pkColumns, pkColumn{name: name, position: pkPosition})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	if len(pkColumns) == 0 {
		return columns, nil, nil
	}
	sort.Slice(pkColumns, func(a, b int) bool { return pkColumns[a].position < pkColumns[b].position })
	pk := &schema.PrimaryKey{}
	for _, c := range pkColumns {
		pk.Columns = append(pk.Columns, c.name)
	}
	return columns, pk, nil
}

func (i *sqliteIntrospector) introspectIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%q)", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type indexEntry struct {
		name   string
		unique bool
	}

	var entries []indexEntry
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}
		// Indexes backing PRIMARY KEY or UNIQUE column constraints are
		// implementation detail; only explicit CREATE INDEX shows up as "c".
		if origin != "c" {
			continue
		}
		entries = append(entries, indexEntry{name: name, unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var indexes []schema.Index
	for _, entry := range entries {
		columns, err := i.indexColumns(ctx, entry.name)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, schema.Index{
			Name:    entry.name,
			Columns: columns,
			Unique:  entry.unique,
		})
	}

	return indexes, nil
}

func (i *sqliteIntrospector) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%q)", indexName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		if name.Valid {
			columns = append(columns, name.String)
		}
	}
	return columns, rows.Err()
}

// introspectForeignKeys groups foreign_key_list rows, one per column, into
// constraints by id. The pragma reports no constraint names, so they get
// stable synthetic ones.
func (i *sqliteIntrospector) introspectForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKey, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fkByID := make(map[int]*schema.ForeignKey)
	var ids []int
	for rows.Next() {
		var id, seq int
		var refTable, from, onUpdate, onDelete, match string
		var to sql.NullString
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}

		fk, ok := fkByID[id]
		if !ok {
			fk = &schema.ForeignKey{
				ConstraintName:  fmt.Sprintf("%s_fk_%d", tableName, id),
				ReferencedTable: refTable,
				OnUpdate:        parseReferentialAction(onUpdate),
				OnDelete:        parseReferentialAction(onDelete),
			}
			fkByID[id] = fk
			ids = append(ids, id)
		}
		fk.Columns = append(fk.Columns, from)
		if to.Valid {
			fk.ReferencedColumns = append(fk.ReferencedColumns, to.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Ints(ids)
	var fks []schema.ForeignKey
	for _, id := range ids {
		fks = append(fks, *fkByID[id])
	}
	return fks, nil
}

// mapSQLiteType applies the type affinity rules to a declared column type.
func mapSQLiteType(declared string) (connector.ScalarType, *connector.NativeTypeInstance) {
	upper := strings.ToUpper(declared)

	switch {
	case strings.Contains(upper, "BOOL"):
		return connector.ScalarTypeBoolean, nil
	case strings.Contains(upper, "BIGINT"):
		return connector.ScalarTypeBigInt, nil
	case strings.Contains(upper, "INT"):
		return connector.ScalarTypeInt, nil
	case strings.Contains(upper, "DECIMAL"), strings.Contains(upper, "NUMERIC"):
		return connector.ScalarTypeDecimal, nil
	case strings.Contains(upper, "DATE"), strings.Contains(upper, "TIME"):
		return connector.ScalarTypeDateTime, nil
	case strings.Contains(upper, "CHAR"), strings.Contains(upper, "TEXT"),
		strings.Contains(upper, "CLOB"):
		return connector.ScalarTypeString, nil
	case strings.Contains(upper, "BLOB"), upper == "":
		return connector.ScalarTypeBytes, nil
	case strings.Contains(upper, "REAL"), strings.Contains(upper, "FLOA"),
		strings.Contains(upper, "DOUB"):
		return connector.ScalarTypeFloat, nil
	default:
		return connector.ScalarTypeString, nil
	}
}
