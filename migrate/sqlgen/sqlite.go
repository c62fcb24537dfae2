package sqlgen

import (
	"fmt"
	"strings"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/migrate/diff"
	"github.com/schemaforge/schemaforge/schema"
)

type sqliteRenderer struct {
	conn connector.Connector
}

var sqliteTypeNames = map[string]string{
	"Boolean":  "BOOLEAN",
	"Integer":  "INTEGER",
	"BigInt":   "BIGINT",
	"Real":     "REAL",
	"Decimal":  "DECIMAL",
	"Text":     "TEXT",
	"DateTime": "DATETIME",
	"Blob":     "BLOB",
}

func (r *sqliteRenderer) quote(ident string) string {
	return `"` + ident + `"`
}

func (r *sqliteRenderer) columnType(col *schema.Column) string {
	nt := col.NativeType
	if nt == nil {
		def := r.conn.DefaultNativeTypeForScalarType(col.Type)
		nt = &def
	}
	return renderNativeTypeName(sqliteTypeNames, *nt)
}

// AUTOINCREMENT is only valid on the INTEGER PRIMARY KEY column, which
// SQLite auto-populates anyway, so the plain type suffices.
func (r *sqliteRenderer) autoIncrementColumn(col *schema.Column) (string, bool) {
	return "", false
}

func (r *sqliteRenderer) defaultFunction(name string) string {
	if name == "now" {
		return "CURRENT_TIMESTAMP"
	}
	return name + "()"
}

func (r *sqliteRenderer) RenderStep(step diff.Step) ([]string, error) {
	switch step.Kind {
	case diff.StepCreateTable:
		return []string{r.createTable(step.TableDef)}, nil
	case diff.StepDropTable:
		return []string{"DROP TABLE " + r.quote(step.Table)}, nil
	case diff.StepAddColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
			r.quote(step.Table), columnDefinition(r, step.Column))}, nil
	case diff.StepDropColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
			r.quote(step.Table), r.quote(step.Column.Name))}, nil
	case diff.StepAlterColumn:
		return r.rebuildTable(step)
	case diff.StepAddIndex:
		return []string{createIndexSQL(r, step.Table, step.Index, "", "")}, nil
	case diff.StepDropIndex:
		return []string{"DROP INDEX " + r.quote(step.Index.Name)}, nil
	case diff.StepAddForeignKey, diff.StepDropForeignKey:
		// Foreign keys only exist inside the table definition; the pairing
		// create/drop table step carries them.
		return nil, nil
	case diff.StepCreateEnum, diff.StepDropEnum:
		return nil, fmt.Errorf("enums are not supported on SQLite")
	case diff.StepRaw:
		return []string{step.SQL}, nil
	default:
		return nil, fmt.Errorf("unsupported step kind %q", step.Kind)
	}
}

// rebuildTable implements column alteration the only way SQLite can: create
// the new shape under a temporary name, copy the rows, then swap. The copy
// touches only columns that exist on both sides, and dropping the old table
// discards its indexes, so the untouched ones are created again at the end.
func (r *sqliteRenderer) rebuildTable(step diff.Step) ([]string, error) {
	if step.TableDef == nil {
		return nil, fmt.Errorf("altering column %q requires the full table definition", step.After.Name)
	}
	tmp := "_schemaforge_new_" + step.Table

	rebuilt := *step.TableDef
	rebuilt.Name = tmp

	copyColumns := step.CopyColumns
	if copyColumns == nil {
		for i := range step.TableDef.Columns {
			copyColumns = append(copyColumns, step.TableDef.Columns[i].Name)
		}
	}

	stmts := []string{r.createTable(&rebuilt)}
	if len(copyColumns) > 0 {
		quoted := make([]string, len(copyColumns))
		for i, name := range copyColumns {
			quoted[i] = r.quote(name)
		}
		columnList := strings.Join(quoted, ", ")
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			r.quote(tmp), columnList, columnList, r.quote(step.Table)))
	}
	stmts = append(stmts,
		"DROP TABLE "+r.quote(step.Table),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", r.quote(tmp), r.quote(step.Table)))
	for _, idx := range step.RebuildIndexes {
		stmts = append(stmts, createIndexSQL(r, step.Table, idx, "", ""))
	}
	return stmts, nil
}

// createTable inlines foreign keys into the definition; there is no ALTER
// TABLE ADD CONSTRAINT on this backend.
func (r *sqliteRenderer) createTable(table *schema.Table) string {
	sql := createTableSQL(r, table)
	if len(table.ForeignKeys) == 0 {
		return sql
	}

	var constraints []string
	for i := range table.ForeignKeys {
		fk := &table.ForeignKeys[i]
		constraints = append(constraints, fmt.Sprintf(
			"    CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
			r.quote(fk.ConstraintName), quotedList(r, fk.Columns),
			r.quote(fk.ReferencedTable), quotedList(r, fk.ReferencedColumns),
			referentialActionSQL(fk.OnDelete), referentialActionSQL(fk.OnUpdate)))
	}
	return strings.TrimSuffix(sql, "\n)") + ",\n" + strings.Join(constraints, ",\n") + "\n)"
}
