package sqlgen

import (
	"fmt"
	"strings"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/migrate/diff"
	"github.com/schemaforge/schemaforge/schema"
)

type postgresRenderer struct {
	conn connector.Connector
}

var postgresTypeNames = map[string]string{
	"SmallInt":        "SMALLINT",
	"Integer":         "INTEGER",
	"Oid":             "OID",
	"BigInt":          "BIGINT",
	"Real":            "REAL",
	"DoublePrecision": "DOUBLE PRECISION",
	"Decimal":         "DECIMAL",
	"Money":           "MONEY",
	"VarChar":         "VARCHAR",
	"Char":            "CHAR",
	"Text":            "TEXT",
	"Citext":          "CITEXT",
	"Uuid":            "UUID",
	"Inet":            "INET",
	"Bit":             "BIT",
	"VarBit":          "VARBIT",
	"Xml":             "XML",
	"Bytea":           "BYTEA",
	"Timestamp":       "TIMESTAMP",
	"Timestamptz":     "TIMESTAMPTZ",
	"Date":            "DATE",
	"Time":            "TIME",
	"Timetz":          "TIMETZ",
	"Boolean":         "BOOLEAN",
	"Json":            "JSON",
	"JsonB":           "JSONB",
	// CockroachDB additions.
	"Int4":   "INT4",
	"Int8":   "INT8",
	"String": "STRING",
}

func (r *postgresRenderer) quote(ident string) string {
	return `"` + ident + `"`
}

func (r *postgresRenderer) columnType(col *schema.Column) string {
	// Enum columns reference the CREATE TYPE name, which is an identifier
	// here, not a keyword from the type catalogue.
	if col.Type == connector.ScalarTypeEnum && col.NativeType != nil {
		sqlType := r.quote(col.NativeType.Name)
		if col.List {
			sqlType += "[]"
		}
		return sqlType
	}
	nt := col.NativeType
	if nt == nil {
		def := r.conn.DefaultNativeTypeForScalarType(col.Type)
		nt = &def
	}
	sqlType := renderNativeTypeName(postgresTypeNames, *nt)
	if col.List {
		sqlType += "[]"
	}
	return sqlType
}

func (r *postgresRenderer) autoIncrementColumn(col *schema.Column) (string, bool) {
	if col.Type == connector.ScalarTypeBigInt {
		return "BIGSERIAL", true
	}
	return "SERIAL", true
}

func (r *postgresRenderer) defaultFunction(name string) string {
	switch name {
	case "now":
		return "CURRENT_TIMESTAMP"
	case "uuid":
		return "gen_random_uuid()"
	default:
		return name + "()"
	}
}

func (r *postgresRenderer) RenderStep(step diff.Step) ([]string, error) {
	switch step.Kind {
	case diff.StepCreateTable:
		return []string{createTableSQL(r, step.TableDef)}, nil
	case diff.StepDropTable:
		return []string{"DROP TABLE " + r.quote(step.Table)}, nil
	case diff.StepAddColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
			r.quote(step.Table), columnDefinition(r, step.Column))}, nil
	case diff.StepDropColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
			r.quote(step.Table), r.quote(step.Column.Name))}, nil
	case diff.StepAlterColumn:
		return r.alterColumn(step), nil
	case diff.StepAddIndex:
		return []string{createIndexSQL(r, step.Table, step.Index, r.usingClause(step.Index), "")}, nil
	case diff.StepDropIndex:
		return []string{"DROP INDEX " + r.quote(step.Index.Name)}, nil
	case diff.StepAddForeignKey:
		return []string{addForeignKeySQL(r, step.Table, step.ForeignKey)}, nil
	case diff.StepDropForeignKey:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s",
			r.quote(step.Table), r.quote(step.ForeignKey.ConstraintName))}, nil
	case diff.StepCreateEnum:
		return []string{r.createEnum(step.Enum)}, nil
	case diff.StepDropEnum:
		return []string{"DROP TYPE " + r.quote(step.Enum.Name)}, nil
	case diff.StepRaw:
		return []string{step.SQL}, nil
	default:
		return nil, fmt.Errorf("unsupported step kind %q", step.Kind)
	}
}

// alterColumn emits one ALTER TABLE clause per changed property so each can
// be inspected in isolation in the generated script.
func (r *postgresRenderer) alterColumn(step diff.Step) []string {
	table, before, after := r.quote(step.Table), step.Before, step.After
	column := r.quote(after.Name)
	var stmts []string

	if typeDiffers(before, after) {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DATA TYPE %s",
			table, column, r.columnType(after)))
	}
	if before.Nullable != after.Nullable {
		verb := "SET"
		if after.Nullable {
			verb = "DROP"
		}
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s NOT NULL", table, column, verb))
	}
	if !defaultsEqual(before, after) {
		if after.Default == nil {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", table, column))
		} else {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s",
				table, column, renderDefault(r, after)))
		}
	}
	return stmts
}

func (r *postgresRenderer) usingClause(idx *schema.Index) string {
	if idx.Algorithm == connector.IndexAlgorithmBTree {
		return ""
	}
	return " USING " + strings.ToUpper(idx.Algorithm.String())
}

func (r *postgresRenderer) createEnum(enum *schema.Enum) string {
	values := make([]string, len(enum.Values))
	for i, v := range enum.Values {
		values[i] = "'" + v + "'"
	}
	return fmt.Sprintf("CREATE TYPE %s AS ENUM (%s)", r.quote(enum.Name), strings.Join(values, ", "))
}

func renderNativeTypeName(names map[string]string, nt connector.NativeTypeInstance) string {
	base, ok := names[nt.Name]
	if !ok {
		base = strings.ToUpper(nt.Name)
	}
	if len(nt.Args) == 0 {
		return base
	}
	args := make([]string, len(nt.Args))
	for i, a := range nt.Args {
		args[i] = fmt.Sprintf("%d", a)
	}
	return base + "(" + strings.Join(args, ",") + ")"
}

func typeDiffers(before, after *schema.Column) bool {
	if before.Type != after.Type || before.List != after.List {
		return true
	}
	if (before.NativeType == nil) != (after.NativeType == nil) {
		return true
	}
	return before.NativeType != nil && !before.NativeType.Equal(*after.NativeType)
}

func defaultsEqual(before, after *schema.Column) bool {
	if (before.Default == nil) != (after.Default == nil) {
		return false
	}
	return before.Default == nil || *before.Default == *after.Default
}
