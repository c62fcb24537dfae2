package sqlgen

import (
	"fmt"
	"strings"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/migrate/diff"
	"github.com/schemaforge/schemaforge/schema"
)

type mysqlRenderer struct {
	conn connector.Connector
	// Enum values collected from the create steps rendered so far. MySQL has
	// no standalone enum types; column definitions inline the value list.
	enums map[string][]string
}

var mysqlTypeNames = map[string]string{
	"TinyInt":    "TINYINT",
	"SmallInt":   "SMALLINT",
	"MediumInt":  "MEDIUMINT",
	"Int":        "INT",
	"BigInt":     "BIGINT",
	"Float":      "FLOAT",
	"Double":     "DOUBLE",
	"Decimal":    "DECIMAL",
	"Bool":       "BOOLEAN",
	"VarChar":    "VARCHAR",
	"Char":       "CHAR",
	"TinyText":   "TINYTEXT",
	"Text":       "TEXT",
	"MediumText": "MEDIUMTEXT",
	"LongText":   "LONGTEXT",
	"TinyBlob":   "TINYBLOB",
	"Blob":       "BLOB",
	"MediumBlob": "MEDIUMBLOB",
	"LongBlob":   "LONGBLOB",
	"Binary":     "BINARY",
	"VarBinary":  "VARBINARY",
	"Date":       "DATE",
	"Time":       "TIME",
	"DateTime":   "DATETIME",
	"Timestamp":  "TIMESTAMP",
	"Year":       "YEAR",
	"Json":       "JSON",
}

func (r *mysqlRenderer) quote(ident string) string {
	return "`" + ident + "`"
}

func (r *mysqlRenderer) columnType(col *schema.Column) string {
	if col.Type == connector.ScalarTypeEnum {
		values := r.enums[enumName(col)]
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
		}
		return "ENUM(" + strings.Join(parts, ", ") + ")"
	}
	nt := col.NativeType
	if nt == nil {
		def := r.conn.DefaultNativeTypeForScalarType(col.Type)
		nt = &def
	}
	return renderNativeTypeName(mysqlTypeNames, *nt)
}

// AUTO_INCREMENT is an attribute, not a type, so the shared definition
// renderer keeps the column type and we append the attribute here.
func (r *mysqlRenderer) autoIncrementColumn(col *schema.Column) (string, bool) {
	return r.columnType(col) + " AUTO_INCREMENT", true
}

func (r *mysqlRenderer) defaultFunction(name string) string {
	switch name {
	case "now":
		return "CURRENT_TIMESTAMP(3)"
	case "uuid":
		return "(UUID())"
	default:
		return name + "()"
	}
}

func (r *mysqlRenderer) RenderStep(step diff.Step) ([]string, error) {
	switch step.Kind {
	case diff.StepCreateTable:
		if err := r.resolveEnumColumns(step.TableDef.Columns); err != nil {
			return nil, err
		}
		return []string{createTableSQL(r, step.TableDef)}, nil
	case diff.StepDropTable:
		return []string{"DROP TABLE " + r.quote(step.Table)}, nil
	case diff.StepAddColumn:
		if err := r.resolveEnumColumns([]schema.Column{*step.Column}); err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
			r.quote(step.Table), columnDefinition(r, step.Column))}, nil
	case diff.StepDropColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
			r.quote(step.Table), r.quote(step.Column.Name))}, nil
	case diff.StepAlterColumn:
		if err := r.resolveEnumColumns([]schema.Column{*step.After}); err != nil {
			return nil, err
		}
		// MODIFY restates the whole definition.
		return []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s",
			r.quote(step.Table), columnDefinition(r, step.After))}, nil
	case diff.StepAddIndex:
		return []string{createIndexSQL(r, step.Table, step.Index, "", r.usingClause(step.Index))}, nil
	case diff.StepDropIndex:
		return []string{fmt.Sprintf("DROP INDEX %s ON %s",
			r.quote(step.Index.Name), r.quote(step.Table))}, nil
	case diff.StepAddForeignKey:
		return []string{addForeignKeySQL(r, step.Table, step.ForeignKey)}, nil
	case diff.StepDropForeignKey:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s",
			r.quote(step.Table), r.quote(step.ForeignKey.ConstraintName))}, nil
	case diff.StepCreateEnum:
		// Nothing standalone to create; the values feed the inline ENUM
		// rendering of every later column definition in the plan.
		r.enums[step.Enum.Name] = step.Enum.Values
		return nil, nil
	case diff.StepDropEnum:
		return nil, nil
	case diff.StepRaw:
		return []string{step.SQL}, nil
	default:
		return nil, fmt.Errorf("unsupported step kind %q", step.Kind)
	}
}

// resolveEnumColumns rejects enum columns whose value list is not known yet.
// Plans render in order, so a create step for the enum always precedes the
// columns that use it.
func (r *mysqlRenderer) resolveEnumColumns(cols []schema.Column) error {
	for i := range cols {
		if cols[i].Type != connector.ScalarTypeEnum {
			continue
		}
		if _, ok := r.enums[enumName(&cols[i])]; !ok {
			return fmt.Errorf("enum %q is not declared in this plan", enumName(&cols[i]))
		}
	}
	return nil
}

func enumName(col *schema.Column) string {
	if col.NativeType == nil {
		return ""
	}
	return col.NativeType.Name
}

func (r *mysqlRenderer) usingClause(idx *schema.Index) string {
	if idx.Algorithm == connector.IndexAlgorithmHash {
		return " USING HASH"
	}
	return ""
}
