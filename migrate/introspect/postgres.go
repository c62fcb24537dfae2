package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/schema"
)

// postgresIntrospector reads the public schema of a Postgres or Cockroach
// database through information_schema and the pg_catalog.
type postgresIntrospector struct {
	db   *sql.DB
	conn connector.Connector
}

func (i *postgresIntrospector) Introspect(ctx context.Context) (*schema.Schema, error) {
	out := &schema.Schema{
		Datasource: &schema.Datasource{
			Provider:     i.conn.ProviderName(),
			RelationMode: connector.RelationModeForeignKeys,
		},
	}

	// Enums first so the column mapper can recognize enum-typed columns.
	enums, err := i.introspectEnums(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspecting enums: %w", err)
	}
	out.Enums = enums

	enumNames := make(map[string]bool, len(enums))
	for _, e := range enums {
		enumNames[e.Name] = true
	}

	tables, err := i.introspectTables(ctx, enumNames)
	if err != nil {
		return nil, fmt.Errorf("introspecting tables: %w", err)
	}
	out.Tables = tables

	return out, nil
}

func (i *postgresIntrospector) introspectTables(ctx context.Context, enumNames map[string]bool) ([]schema.Table, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
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

	var tables []schema.Table
	for _, name := range names {
		table := schema.Table{Name: name}

		if table.Columns, err = i.introspectColumns(ctx, name, enumNames); err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		if table.PrimaryKey, err = i.introspectPrimaryKey(ctx, name); err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		if table.Indexes, err = i.introspectIndexes(ctx, name); err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		if table.ForeignKeys, err = i.introspectForeignKeys(ctx, name); err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}

		tables = append(tables, table)
	}

	return tables, nil
}

func (i *postgresIntrospector) introspectColumns(ctx context.Context, tableName string, enumNames map[string]bool) ([]schema.Column, error) {
	query := `
		SELECT
			column_name,
			data_type,
			udt_name,
			is_nullable,
			column_default,
			character_maximum_length,
			numeric_precision,
			numeric_scale
		FROM information_schema.columns
		WHERE table_schema = 'public'
		  AND table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := i.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var (
			name, dataType, udtName, isNullable string
			defaultExpr                         sql.NullString
			maxLength, precision, scale         sql.NullInt64
		)
		if err := rows.Scan(&name, &dataType, &udtName, &isNullable, &defaultExpr,
			&maxLength, &precision, &scale); err != nil {
			return nil, err
		}

		col := schema.Column{
			Name:     name,
			Nullable: isNullable == "YES",
		}

		udt := udtName
		if dataType == "ARRAY" {
			col.List = true
			udt = strings.TrimPrefix(udtName, "_")
		}
		col.Type, col.NativeType = mapPostgresType(udt, maxLength.Int64, precision.Int64, scale.Int64, enumNames)

		if defaultExpr.Valid {
			col.Default = parseDefault(defaultExpr.String, col.Type)
			col.AutoIncrement = strings.Contains(strings.ToLower(defaultExpr.String), "nextval(")
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (i *postgresIntrospector) introspectPrimaryKey(ctx context.Context, tableName string) (*schema.PrimaryKey, error) {
	query := `
		SELECT
			tc.constraint_name,
			array_agg(kcu.column_name ORDER BY kcu.ordinal_position)
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = 'public'
		  AND tc.table_name = $1
		GROUP BY tc.constraint_name
	`

	var pk schema.PrimaryKey
	var columnsArray string
	err := i.db.QueryRowContext(ctx, query, tableName).Scan(&pk.Name, &columnsArray)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pk.Columns = splitGroupedColumns(columnsArray)
	return &pk, nil
}

func (i *postgresIntrospector) introspectIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	query := `
		SELECT
			i.relname,
			array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)),
			ix.indisunique,
			am.amname
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_am am ON am.oid = i.relam
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE n.nspname = 'public'
		  AND t.relname = $1
		  AND NOT ix.indisprimary
		GROUP BY i.relname, ix.indisunique, am.amname
		ORDER BY i.relname
	`

	rows, err := i.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		var columnsArray, amName string
		if err := rows.Scan(&idx.Name, &columnsArray, &idx.Unique, &amName); err != nil {
			return nil, err
		}
		idx.Columns = splitGroupedColumns(columnsArray)
		idx.Algorithm = parseIndexAlgorithm(amName)
		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}

func (i *postgresIntrospector) introspectForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKey, error) {
	query := `
		SELECT
			tc.constraint_name,
			array_agg(kcu.column_name ORDER BY kcu.ordinal_position),
			ccu.table_name,
			array_agg(ccu.column_name ORDER BY kcu.ordinal_position),
			rc.update_rule,
			rc.delete_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_name = tc.constraint_name
			AND rc.constraint_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = 'public'
		  AND tc.table_name = $1
		GROUP BY tc.constraint_name, ccu.table_name, rc.update_rule, rc.delete_rule
		ORDER BY tc.constraint_name
	`

	rows, err := i.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	for rows.Next() {
		var fk schema.ForeignKey
		var columnsArray, refColumnsArray, onUpdate, onDelete string
		if err := rows.Scan(&fk.ConstraintName, &columnsArray, &fk.ReferencedTable,
			&refColumnsArray, &onUpdate, &onDelete); err != nil {
			return nil, err
		}
		fk.Columns = splitGroupedColumns(columnsArray)
		fk.ReferencedColumns = splitGroupedColumns(refColumnsArray)
		fk.OnUpdate = parseReferentialAction(onUpdate)
		fk.OnDelete = parseReferentialAction(onDelete)
		fks = append(fks, fk)
	}

	return fks, rows.Err()
}

func (i *postgresIntrospector) introspectEnums(ctx context.Context) ([]schema.Enum, error) {
	query := `
		SELECT
			t.typname,
			array_agg(e.enumlabel ORDER BY e.enumsortorder)
		FROM pg_type t
		JOIN pg_enum e ON t.oid = e.enumtypid
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = 'public'
		GROUP BY t.typname
		ORDER BY t.typname
	`

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enums []schema.Enum
	for rows.Next() {
		var enum schema.Enum
		var valuesArray string
		if err := rows.Scan(&enum.Name, &valuesArray); err != nil {
			return nil, err
		}
		enum.Values = splitGroupedColumns(valuesArray)
		enums = append(enums, enum)
	}

	return enums, rows.Err()
}

// mapPostgresType resolves a pg_catalog udt name to the scalar type and the
// native type instance the declared side would use for the same column.
func mapPostgresType(udt string, maxLength, precision, scale int64, enumNames map[string]bool) (connector.ScalarType, *connector.NativeTypeInstance) {
	if enumNames[udt] {
		return connector.ScalarTypeEnum, &connector.NativeTypeInstance{Name: udt}
	}

	native := func(name string, args ...int) *connector.NativeTypeInstance {
		return &connector.NativeTypeInstance{Name: name, Args: args}
	}
	sized := func(name string, n int64) *connector.NativeTypeInstance {
		if n > 0 {
			return native(name, int(n))
		}
		return native(name)
	}

	switch udt {
	case "int2":
		return connector.ScalarTypeInt, native("SmallInt")
	case "int4":
		return connector.ScalarTypeInt, native("Integer")
	case "oid":
		return connector.ScalarTypeInt, native("Oid")
	case "int8":
		return connector.ScalarTypeBigInt, native("BigInt")
	case "float4":
		return connector.ScalarTypeFloat, native("Real")
	case "float8":
		return connector.ScalarTypeFloat, native("DoublePrecision")
	case "numeric":
		if precision > 0 {
			return connector.ScalarTypeDecimal, native("Decimal", int(precision), int(scale))
		}
		return connector.ScalarTypeDecimal, native("Decimal")
	case "money":
		return connector.ScalarTypeDecimal, native("Money")
	case "varchar":
		return connector.ScalarTypeString, sized("VarChar", maxLength)
	case "bpchar":
		return connector.ScalarTypeString, sized("Char", maxLength)
	case "text":
		return connector.ScalarTypeString, native("Text")
	case "citext":
		return connector.ScalarTypeString, native("Citext")
	case "uuid":
		return connector.ScalarTypeString, native("Uuid")
	case "inet":
		return connector.ScalarTypeString, native("Inet")
	case "bit":
		return connector.ScalarTypeString, sized("Bit", maxLength)
	case "varbit":
		return connector.ScalarTypeString, sized("VarBit", maxLength)
	case "xml":
		return connector.ScalarTypeString, native("Xml")
	case "bytea":
		return connector.ScalarTypeBytes, native("Bytea")
	case "timestamp":
		return connector.ScalarTypeDateTime, native("Timestamp")
	case "timestamptz":
		return connector.ScalarTypeDateTime, native("Timestamptz")
	case "date":
		return connector.ScalarTypeDateTime, native("Date")
	case "time":
		return connector.ScalarTypeDateTime, native("Time")
	case "timetz":
		return connector.ScalarTypeDateTime, native("Timetz")
	case "bool":
		return connector.ScalarTypeBoolean, native("Boolean")
	case "json":
		return connector.ScalarTypeJson, native("Json")
	case "jsonb":
		return connector.ScalarTypeJson, native("JsonB")
	default:
		return connector.ScalarTypeString, nil
	}
}

func parseIndexAlgorithm(amName string) connector.IndexAlgorithm {
	switch strings.ToLower(amName) {
	case "hash":
		return connector.IndexAlgorithmHash
	case "gist":
		return connector.IndexAlgorithmGist
	case "gin":
		return connector.IndexAlgorithmGin
	case "spgist":
		return connector.IndexAlgorithmSpGist
	case "brin":
		return connector.IndexAlgorithmBrin
	default:
		return connector.IndexAlgorithmBTree
	}
}
