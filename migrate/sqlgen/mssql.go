package sqlgen

import (
	"fmt"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/migrate/diff"
	"github.com/schemaforge/schemaforge/schema"
)

type mssqlRenderer struct {
	conn connector.Connector
}

var mssqlTypeNames = map[string]string{
	"TinyInt":        "TINYINT",
	"SmallInt":       "SMALLINT",
	"Int":            "INT",
	"BigInt":         "BIGINT",
	"Real":           "REAL",
	"Float":          "FLOAT",
	"Decimal":        "DECIMAL",
	"Money":          "MONEY",
	"Bit":            "BIT",
	"Char":           "CHAR",
	"NChar":          "NCHAR",
	"VarChar":        "VARCHAR",
	"NVarChar":       "NVARCHAR",
	"Text":           "TEXT",
	"NText":          "NTEXT",
	"Binary":         "BINARY",
	"VarBinary":      "VARBINARY",
	"Image":          "IMAGE",
	"Date":           "DATE",
	"Time":           "TIME",
	"DateTime":       "DATETIME",
	"DateTime2":      "DATETIME2",
	"DateTimeOffset": "DATETIMEOFFSET",
	"SmallDateTime":  "SMALLDATETIME",
	"UniqueIdentifier": "UNIQUEIDENTIFIER",
}

func (r *mssqlRenderer) quote(ident string) string {
	return "[" + ident + "]"
}

func (r *mssqlRenderer) columnType(col *schema.Column) string {
	nt := col.NativeType
	if nt == nil {
		def := r.conn.DefaultNativeTypeForScalarType(col.Type)
		nt = &def
	}
	return renderNativeTypeName(mssqlTypeNames, *nt)
}

func (r *mssqlRenderer) autoIncrementColumn(col *schema.Column) (string, bool) {
	return r.columnType(col) + " IDENTITY(1,1)", true
}

func (r *mssqlRenderer) defaultFunction(name string) string {
	switch name {
	case "now":
		return "CURRENT_TIMESTAMP"
	case "uuid":
		return "NEWID()"
	default:
		return name + "()"
	}
}

func (r *mssqlRenderer) RenderStep(step diff.Step) ([]string, error) {
	switch step.Kind {
	case diff.StepCreateTable:
		return []string{createTableSQL(r, step.TableDef)}, nil
	case diff.StepDropTable:
		return []string{"DROP TABLE " + r.quote(step.Table)}, nil
	case diff.StepAddColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s ADD %s",
			r.quote(step.Table), columnDefinition(r, step.Column))}, nil
	case diff.StepDropColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
			r.quote(step.Table), r.quote(step.Column.Name))}, nil
	case diff.StepAlterColumn:
		return r.alterColumn(step), nil
	case diff.StepAddIndex:
		return []string{createIndexSQL(r, step.Table, step.Index, "", "")}, nil
	case diff.StepDropIndex:
		return []string{fmt.Sprintf("DROP INDEX %s ON %s",
			r.quote(step.Index.Name), r.quote(step.Table))}, nil
	case diff.StepAddForeignKey:
		return []string{addForeignKeySQL(r, step.Table, step.ForeignKey)}, nil
	case diff.StepDropForeignKey:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s",
			r.quote(step.Table), r.quote(step.ForeignKey.ConstraintName))}, nil
	case diff.StepCreateEnum, diff.StepDropEnum:
		return nil, fmt.Errorf("enums are not supported on SQL Server")
	case diff.StepRaw:
		return []string{step.SQL}, nil
	default:
		return nil, fmt.Errorf("unsupported step kind %q", step.Kind)
	}
}

func (r *mssqlRenderer) alterColumn(step diff.Step) []string {
	table := r.quote(step.Table)
	after := step.After

	nullability := " NOT NULL"
	if after.Nullable {
		nullability = " NULL"
	}
	stmts := []string{fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s%s",
		table, r.quote(after.Name), r.columnType(after), nullability)}

	// Defaults are named constraints here, so a change is drop plus add.
	if !defaultsEqual(step.Before, after) && after.Default != nil {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s DEFAULT %s FOR %s",
			table, r.quote("DF_"+step.Table+"_"+after.Name), renderDefault(r, after), r.quote(after.Name)))
	}
	return stmts
}
