package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/schema"
)

// mssqlIntrospector reads the dbo schema through INFORMATION_SCHEMA and the
// sys catalogue views.
type mssqlIntrospector struct {
	db   *sql.DB
	conn connector.Connector
}

func (i *mssqlIntrospector) Introspect(ctx context.Context) (*schema.Schema, error) {
	out := &schema.Schema{
		Datasource: &schema.Datasource{
			Provider:     i.conn.ProviderName(),
			RelationMode: connector.RelationModeForeignKeys,
		},
	}

	query := `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = 'dbo'
		  AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
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
		table := schema.Table{Name: name}

		if table.Columns, err = i.introspectColumns(ctx, name); err != nil {
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

		out.Tables = append(out.Tables, table)
	}

	return out, nil
}

func (i *mssqlIntrospector) introspectColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			c.COLUMN_NAME,
			c.DATA_TYPE,
			c.IS_NULLABLE,
			c.COLUMN_DEFAULT,
			c.CHARACTER_MAXIMUM_LENGTH,
			c.NUMERIC_PRECISION,
			c.NUMERIC_SCALE,
			COLUMNPROPERTY(OBJECT_ID('dbo.' + c.TABLE_NAME), c.COLUMN_NAME, 'IsIdentity')
		FROM INFORMATION_SCHEMA.COLUMNS c
		WHERE c.TABLE_SCHEMA = 'dbo'
		  AND c.TABLE_NAME = @p1
		ORDER BY c.ORDINAL_POSITION
	`

	rows, err := i.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var (
			name, dataType, isNullable  string
			defaultExpr                 sql.NullString
			maxLength, precision, scale sql.NullInt64
			isIdentity                  sql.NullInt64
		)
		if err := rows.Scan(&name, &dataType, &isNullable, &defaultExpr,
			&maxLength, &precision, &scale, &isIdentity); err != nil {
			return nil, err
		}

		col := schema.Column{
			Name:          name,
			Nullable:      isNullable == "YES",
			AutoIncrement: isIdentity.Int64 == 1,
		}
		col.Type, col.NativeType = mapMSSQLType(dataType, maxLength.Int64, precision.Int64, scale.Int64)

		if defaultExpr.Valid {
			col.Default = parseDefault(stripMSSQLParens(defaultExpr.String), col.Type)
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (i *mssqlIntrospector) introspectPrimaryKey(ctx context.Context, tableName string) (*schema.PrimaryKey, error) {
	query := `
		SELECT kc.name, c.name
		FROM sys.key_constraints kc
		JOIN sys.index_columns ic
			ON ic.object_id = kc.parent_object_id AND ic.index_id = kc.unique_index_id
		JOIN sys.columns c
			ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE kc.type = 'PK'
		  AND kc.parent_object_id = OBJECT_ID('dbo.' + @p1)
		ORDER BY ic.key_ordinal
	`

	rows, err := i.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk *schema.PrimaryKey
	for rows.Next() {
		var constraintName, columnName string
		if err := rows.Scan(&constraintName, &columnName); err != nil {
			return nil, err
		}
		if pk == nil {
			pk = &schema.PrimaryKey{Name: constraintName}
		}
		pk.Columns = append(pk.Columns, columnName)
	}
	return pk, rows.Err()
}

func (i *mssqlIntrospector) introspectIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	query := `
		SELECT ix.name, ix.is_unique, c.name
		FROM sys.indexes ix
		JOIN sys.index_columns ic
			ON ic.object_id = ix.object_id AND ic.index_id = ix.index_id
		JOIN sys.columns c
			ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE ix.object_id = OBJECT_ID('dbo.' + @p1)
		  AND ix.is_primary_key = 0
		  AND ix.is_hypothetical = 0
		  AND ix.name IS NOT NULL
		ORDER BY ix.name, ic.key_ordinal
	`

	rows, err := i.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	byName := make(map[string]int)
	for rows.Next() {
		var name, columnName string
		var isUnique bool
		if err := rows.Scan(&name, &isUnique, &columnName); err != nil {
			return nil, err
		}
		pos, ok := byName[name]
		if !ok {
			pos = len(indexes)
			byName[name] = pos
			indexes = append(indexes, schema.Index{Name: name, Unique: isUnique})
		}
		indexes[pos].Columns = append(indexes[pos].Columns, columnName)
	}

	return indexes, rows.Err()
}

func (i *mssqlIntrospector) introspectForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKey, error) {
	query := `
		SELECT
			fk.name,
			pc.name,
			OBJECT_NAME(fk.referenced_object_id),
			rc.name,
			fk.update_referential_action_desc,
			fk.delete_referential_action_desc
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc
			ON fkc.constraint_object_id = fk.object_id
		JOIN sys.columns pc
			ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
		JOIN sys.columns rc
			ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		WHERE fk.parent_object_id = OBJECT_ID('dbo.' + @p1)
		ORDER BY fk.name, fkc.constraint_column_id
	`

	rows, err := i.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	byName := make(map[string]int)
	for rows.Next() {
		var name, column, refTable, refColumn, onUpdate, onDelete string
		if err := rows.Scan(&name, &column, &refTable, &refColumn, &onUpdate, &onDelete); err != nil {
			return nil, err
		}
		pos, ok := byName[name]
		if !ok {
			pos = len(fks)
			byName[name] = pos
			fks = append(fks, schema.ForeignKey{
				ConstraintName:  name,
				ReferencedTable: refTable,
				// The action descs use underscores (SET_NULL).
				OnUpdate: parseReferentialAction(strings.ReplaceAll(onUpdate, "_", " ")),
				OnDelete: parseReferentialAction(strings.ReplaceAll(onDelete, "_", " ")),
			})
		}
		fks[pos].Columns = append(fks[pos].Columns, column)
		fks[pos].ReferencedColumns = append(fks[pos].ReferencedColumns, refColumn)
	}

	return fks, rows.Err()
}

// stripMSSQLParens unwraps default expressions, which arrive as ((0)) or
// (getdate()).
func stripMSSQLParens(expr string) string {
	for len(expr) >= 2 && expr[0] == '(' && expr[len(expr)-1] == ')' {
		expr = expr[1 : len(expr)-1]
	}
	return expr
}

func mapMSSQLType(dataType string, maxLength, precision, scale int64) (connector.ScalarType, *connector.NativeTypeInstance) {
	native := func(name string, args ...int) *connector.NativeTypeInstance {
		return &connector.NativeTypeInstance{Name: name, Args: args}
	}
	sized := func(name string, n int64) *connector.NativeTypeInstance {
		if n > 0 {
			return native(name, int(n))
		}
		return native(name)
	}

	switch strings.ToLower(dataType) {
	case "bit":
		return connector.ScalarTypeBoolean, native("Bit")
	case "tinyint":
		return connector.ScalarTypeInt, native("TinyInt")
	case "smallint":
		return connector.ScalarTypeInt, native("SmallInt")
	case "int":
		return connector.ScalarTypeInt, native("Int")
	case "bigint":
		return connector.ScalarTypeBigInt, native("BigInt")
	case "real":
		return connector.ScalarTypeFloat, native("Real")
	case "float":
		return connector.ScalarTypeFloat, native("Float")
	case "decimal", "numeric":
		if precision > 0 {
			return connector.ScalarTypeDecimal, native("Decimal", int(precision), int(scale))
		}
		return connector.ScalarTypeDecimal, native("Decimal")
	case "money":
		return connector.ScalarTypeDecimal, native("Money")
	case "char":
		return connector.ScalarTypeString, sized("Char", maxLength)
	case "nchar":
		return connector.ScalarTypeString, sized("NChar", maxLength)
	case "varchar":
		return connector.ScalarTypeString, sized("VarChar", maxLength)
	case "nvarchar":
		return connector.ScalarTypeString, sized("NVarChar", maxLength)
	case "text", "ntext":
		return connector.ScalarTypeString, native("Text")
	case "uniqueidentifier":
		return connector.ScalarTypeString, native("UniqueIdentifier")
	case "xml":
		return connector.ScalarTypeString, native("Xml")
	case "binary":
		return connector.ScalarTypeBytes, sized("Binary", maxLength)
	case "varbinary":
		return connector.ScalarTypeBytes, sized("VarBinary", maxLength)
	case "image":
		return connector.ScalarTypeBytes, native("Image")
	case "date":
		return connector.ScalarTypeDateTime, native("Date")
	case "time":
		return connector.ScalarTypeDateTime, native("Time")
	case "datetime":
		return connector.ScalarTypeDateTime, native("DateTime")
	case "datetime2":
		return connector.ScalarTypeDateTime, native("DateTime2")
	case "smalldatetime":
		return connector.ScalarTypeDateTime, native("SmallDateTime")
	case "datetimeoffset":
		return connector.ScalarTypeDateTime, native("DateTimeOffset")
	default:
		return connector.ScalarTypeString, nil
	}
}
