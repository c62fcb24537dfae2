package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/schema"
)

// mysqlIntrospector reads the current database through information_schema.
type mysqlIntrospector struct {
	db   *sql.DB
	conn connector.Connector
}

func (i *mysqlIntrospector) Introspect(ctx context.Context) (*schema.Schema, error) {
	var dbName string
	if err := i.db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&dbName); err != nil {
		return nil, fmt.Errorf("resolving database name: %w", err)
	}

	out := &schema.Schema{
		Datasource: &schema.Datasource{
			Name:         dbName,
			Provider:     i.conn.ProviderName(),
			RelationMode: connector.RelationModeForeignKeys,
		},
	}

	tables, err := i.introspectTables(ctx, dbName)
	if err != nil {
		return nil, fmt.Errorf("introspecting tables: %w", err)
	}
	out.Tables = tables

	// MySQL enums live on the column, not in a type catalogue. Columns
	// declared as ENUM(...) keep the inline definition in their native type.
	return out, nil
}

func (i *mysqlIntrospector) introspectTables(ctx context.Context, dbName string) ([]schema.Table, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := i.db.QueryContext(ctx, query, dbName)
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

		if table.Columns, err = i.introspectColumns(ctx, dbName, name); err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		if table.PrimaryKey, err = i.introspectPrimaryKey(ctx, dbName, name); err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		if table.Indexes, err = i.introspectIndexes(ctx, dbName, name); err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		if table.ForeignKeys, err = i.introspectForeignKeys(ctx, dbName, name); err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}

		tables = append(tables, table)
	}

	return tables, nil
}

func (i *mysqlIntrospector) introspectColumns(ctx context.Context, dbName, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			column_name,
			column_type,
			is_nullable,
			column_default,
			extra
		FROM information_schema.columns
		WHERE table_schema = ?
		  AND table_name = ?
		ORDER BY ordinal_position
	`

	rows, err := i.db.QueryContext(ctx, query, dbName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var (
			name, columnType, isNullable, extra string
			defaultExpr                         sql.NullString
		)
		if err := rows.Scan(&name, &columnType, &isNullable, &defaultExpr, &extra); err != nil {
			return nil, err
		}

		col := schema.Column{
			Name:          name,
			Nullable:      isNullable == "YES",
			AutoIncrement: strings.Contains(strings.ToLower(extra), "auto_increment"),
		}
		col.Type, col.NativeType = mapMySQLType(columnType)

		if defaultExpr.Valid && !col.AutoIncrement {
			col.Default = parseDefault(defaultExpr.String, col.Type)
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (i *mysqlIntrospector) introspectPrimaryKey(ctx context.Context, dbName, tableName string) (*schema.PrimaryKey, error) {
	query := `
		SELECT GROUP_CONCAT(column_name ORDER BY ordinal_position)
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
		  AND table_name = ?
		  AND constraint_name = 'PRIMARY'
		GROUP BY constraint_name
	`

	var columnsJoined string
	err := i.db.QueryRowContext(ctx, query, dbName, tableName).Scan(&columnsJoined)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// The constraint is always called PRIMARY here, which carries no
	// information, so the key stays unnamed.
	return &schema.PrimaryKey{Columns: splitGroupedColumns(columnsJoined)}, nil
}

func (i *mysqlIntrospector) introspectIndexes(ctx context.Context, dbName, tableName string) ([]schema.Index, error) {
	query := `
		SELECT
			index_name,
			GROUP_CONCAT(column_name ORDER BY seq_in_index),
			MAX(non_unique),
			MIN(index_type)
		FROM information_schema.statistics
		WHERE table_schema = ?
		  AND table_name = ?
		  AND index_name != 'PRIMARY'
		GROUP BY index_name
		ORDER BY index_name
	`

	rows, err := i.db.QueryContext(ctx, query, dbName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		var columnsJoined, indexType string
		var nonUnique int
		if err := rows.Scan(&idx.Name, &columnsJoined, &nonUnique, &indexType); err != nil {
			return nil, err
		}
		idx.Columns = splitGroupedColumns(columnsJoined)
		idx.Unique = nonUnique == 0
		idx.Algorithm = parseIndexAlgorithm(indexType)
		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}

func (i *mysqlIntrospector) introspectForeignKeys(ctx context.Context, dbName, tableName string) ([]schema.ForeignKey, error) {
	query := `
		SELECT
			kcu.constraint_name,
			GROUP_CONCAT(kcu.column_name ORDER BY kcu.ordinal_position),
			kcu.referenced_table_name,
			GROUP_CONCAT(kcu.referenced_column_name ORDER BY kcu.ordinal_position),
			rc.update_rule,
			rc.delete_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON kcu.constraint_name = rc.constraint_name
			AND kcu.constraint_schema = rc.constraint_schema
		WHERE kcu.table_schema = ?
		  AND kcu.table_name = ?
		  AND kcu.referenced_table_name IS NOT NULL
		GROUP BY kcu.constraint_name, kcu.referenced_table_name, rc.update_rule, rc.delete_rule
		ORDER BY kcu.constraint_name
	`

	rows, err := i.db.QueryContext(ctx, query, dbName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	for rows.Next() {
		var fk schema.ForeignKey
		var columnsJoined, refColumnsJoined, onUpdate, onDelete string
		if err := rows.Scan(&fk.ConstraintName, &columnsJoined, &fk.ReferencedTable,
			&refColumnsJoined, &onUpdate, &onDelete); err != nil {
			return nil, err
		}
		fk.Columns = splitGroupedColumns(columnsJoined)
		fk.ReferencedColumns = splitGroupedColumns(refColumnsJoined)
		fk.OnUpdate = parseReferentialAction(onUpdate)
		fk.OnDelete = parseReferentialAction(onDelete)
		fks = append(fks, fk)
	}

	return fks, rows.Err()
}

// mapMySQLType resolves an information_schema column_type like
// "varchar(191)" or "decimal(10,2)" to the scalar type and native type.
func mapMySQLType(columnType string) (connector.ScalarType, *connector.NativeTypeInstance) {
	lower := strings.ToLower(columnType)
	base, args := splitTypeArgs(lower)

	native := func(name string) *connector.NativeTypeInstance {
		return &connector.NativeTypeInstance{Name: name, Args: args}
	}

	switch base {
	case "tinyint":
		if len(args) == 1 && args[0] == 1 {
			return connector.ScalarTypeBoolean, &connector.NativeTypeInstance{Name: "Bool"}
		}
		return connector.ScalarTypeInt, native("TinyInt")
	case "smallint":
		return connector.ScalarTypeInt, &connector.NativeTypeInstance{Name: "SmallInt"}
	case "mediumint":
		return connector.ScalarTypeInt, &connector.NativeTypeInstance{Name: "MediumInt"}
	case "int":
		if strings.Contains(lower, "unsigned") {
			return connector.ScalarTypeInt, &connector.NativeTypeInstance{Name: "UnsignedInt"}
		}
		return connector.ScalarTypeInt, &connector.NativeTypeInstance{Name: "Int"}
	case "bigint":
		return connector.ScalarTypeBigInt, &connector.NativeTypeInstance{Name: "BigInt"}
	case "float":
		return connector.ScalarTypeFloat, &connector.NativeTypeInstance{Name: "Float"}
	case "double":
		return connector.ScalarTypeFloat, &connector.NativeTypeInstance{Name: "Double"}
	case "decimal", "numeric":
		return connector.ScalarTypeDecimal, native("Decimal")
	case "varchar":
		return connector.ScalarTypeString, native("VarChar")
	case "char":
		return connector.ScalarTypeString, native("Char")
	case "tinytext":
		return connector.ScalarTypeString, &connector.NativeTypeInstance{Name: "TinyText"}
	case "text":
		return connector.ScalarTypeString, &connector.NativeTypeInstance{Name: "Text"}
	case "mediumtext":
		return connector.ScalarTypeString, &connector.NativeTypeInstance{Name: "MediumText"}
	case "longtext":
		return connector.ScalarTypeString, &connector.NativeTypeInstance{Name: "LongText"}
	case "binary":
		return connector.ScalarTypeBytes, native("Binary")
	case "varbinary":
		return connector.ScalarTypeBytes, native("VarBinary")
	case "tinyblob":
		return connector.ScalarTypeBytes, &connector.NativeTypeInstance{Name: "TinyBlob"}
	case "blob":
		return connector.ScalarTypeBytes, &connector.NativeTypeInstance{Name: "Blob"}
	case "mediumblob":
		return connector.ScalarTypeBytes, &connector.NativeTypeInstance{Name: "MediumBlob"}
	case "longblob":
		return connector.ScalarTypeBytes, &connector.NativeTypeInstance{Name: "LongBlob"}
	case "datetime":
		return connector.ScalarTypeDateTime, native("DateTime")
	case "timestamp":
		return connector.ScalarTypeDateTime, native("Timestamp")
	case "date":
		return connector.ScalarTypeDateTime, &connector.NativeTypeInstance{Name: "Date"}
	case "time":
		return connector.ScalarTypeDateTime, native("Time")
	case "json":
		return connector.ScalarTypeJson, &connector.NativeTypeInstance{Name: "Json"}
	case "enum":
		return connector.ScalarTypeEnum, nil
	default:
		return connector.ScalarTypeString, nil
	}
}

// splitTypeArgs separates "decimal(10,2)" into "decimal" and [10, 2].
// Non-numeric argument lists, as in enum('a','b'), yield no args.
func splitTypeArgs(columnType string) (string, []int) {
	open := strings.IndexByte(columnType, '(')
	if open < 0 {
		return strings.Fields(columnType)[0], nil
	}
	base := columnType[:open]
	end := strings.IndexByte(columnType, ')')
	if end < open {
		return base, nil
	}

	var args []int
	for _, part := range strings.Split(columnType[open+1:end], ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return base, nil
		}
		args = append(args, n)
	}
	return base, args
}
