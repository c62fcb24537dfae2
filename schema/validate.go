package schema

import (
	"sort"
	"strconv"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/diagnostics"
)

// Default value functions the engine knows how to render. dbgenerated passes
// the raw expression through and is always accepted.
var knownDefaultFunctions = map[string]struct{}{
	"now":           {},
	"uuid":          {},
	"cuid":          {},
	"autoincrement": {},
	"dbgenerated":   {},
}

// Validate runs every connector validation hook plus the shared structural
// checks over the whole schema and collects all findings. It never stops at
// the first error.
func Validate(s *Schema, conn connector.Connector, diags *diagnostics.Diagnostics) {
	mode := conn.DefaultRelationMode()
	if s.Datasource != nil {
		conn.ValidateDatasource(datasourceWalker{ds: s.Datasource}, diags)
		if s.Datasource.RelationMode != "" {
			mode = s.Datasource.RelationMode
		}
	}

	for i := range s.Tables {
		table := &s.Tables[i]
		conn.ValidateModel(modelWalker{table: table}, mode, diags)
		validateColumns(table, conn, diags)
		validateMissingRelationIndexes(table, mode, diags)
		for j := range table.ForeignKeys {
			fk := &table.ForeignKeys[j]
			conn.ValidateRelationField(relationWalker{table: table, fk: fk}, mode, diags)
			validateForeignKeyShape(s, table, fk, diags)
		}
	}

	for i := range s.Enums {
		conn.ValidateEnum(enumWalker{enum: &s.Enums[i]}, diags)
	}

	checkConstraintNameCollisions(s, conn, diags)
}

func validateColumns(table *Table, conn connector.Connector, diags *diagnostics.Diagnostics) {
	for i := range table.Columns {
		col := &table.Columns[i]

		if col.Type == connector.ScalarTypeJson && !conn.HasCapability(connector.CapabilityJson) {
			diags.PushError(diagnostics.NewFieldValidationError(
				"The current connector does not support the Json type.",
				table.Name, col.Name, col.Span))
		}
		if col.Type == connector.ScalarTypeDecimal && !conn.HasCapability(connector.CapabilityDecimal) {
			diags.PushError(diagnostics.NewFieldValidationError(
				"The current connector does not support the Decimal type.",
				table.Name, col.Name, col.Span))
		}
		if col.Default != nil && col.Default.Kind == DefaultFunction {
			if _, ok := knownDefaultFunctions[col.Default.Value]; !ok {
				diags.PushError(diagnostics.NewDefaultUnknownFunctionError(col.Default.Value, col.Span))
			}
		}
		// Enum columns borrow the native type slot for the enum name; only
		// real @db annotations go through the connector's catalogue.
		if col.NativeType != nil && col.Type != connector.ScalarTypeEnum {
			validateNativeType(table, col, conn, diags)
		}
	}

	if table.PrimaryKey != nil {
		if len(table.PrimaryKey.Columns) > 1 && !conn.HasCapability(connector.CapabilityCompoundIDs) {
			diags.PushError(diagnostics.NewModelValidationError(
				"The current connector does not support compound ids.",
				table.Name, table.Span))
		}
		for _, name := range table.PrimaryKey.Columns {
			if table.Column(name) == nil {
				diags.PushError(diagnostics.NewModelValidationError(
					"The primary key references the unknown field `"+name+"`.",
					table.Name, table.Span))
			}
		}
	}

	for i := range table.Indexes {
		for _, name := range table.Indexes[i].Columns {
			if table.Column(name) == nil {
				diags.PushError(diagnostics.NewModelValidationError(
					"The index `"+table.Indexes[i].Name+"` references the unknown field `"+name+"`.",
					table.Name, table.Indexes[i].Span))
			}
		}
	}
}

// validateNativeType resolves a column's native type annotation against the
// connector's catalogue: the constructor must exist, the argument shape must
// match, and the constructor must map to the column's declared scalar type.
func validateNativeType(table *Table, col *Column, conn connector.Connector, diags *diagnostics.Diagnostics) {
	args := make([]string, len(col.NativeType.Args))
	for i, a := range col.NativeType.Args {
		args[i] = strconv.Itoa(a)
	}
	if conn.ParseNativeType(col.NativeType.Name, args, col.Span, diags) == nil {
		return
	}
	if ctor := conn.FindNativeTypeConstructor(col.NativeType.Name); ctor.Scalar != col.Type {
		diags.PushError(diagnostics.NewFieldValidationError(
			"Native type "+ctor.Name+" is not compatible with declared field type "+col.Type.String()+".",
			table.Name, col.Name, col.Span))
	}
}

func validateForeignKeyShape(s *Schema, table *Table, fk *ForeignKey, diags *diagnostics.Diagnostics) {
	if len(fk.Columns) != len(fk.ReferencedColumns) {
		diags.PushError(diagnostics.NewModelValidationError(
			"The relation `"+fk.ConstraintName+"` must reference the same number of fields on both sides.",
			table.Name, fk.Span))
	}
	for _, name := range fk.Columns {
		if table.Column(name) == nil {
			diags.PushError(diagnostics.NewModelValidationError(
				"The relation `"+fk.ConstraintName+"` references the unknown field `"+name+"`.",
				table.Name, fk.Span))
		}
	}
	referenced := s.Table(fk.ReferencedTable)
	if referenced == nil {
		diags.PushError(diagnostics.NewModelValidationError(
			"The relation `"+fk.ConstraintName+"` references the unknown model `"+fk.ReferencedTable+"`.",
			table.Name, fk.Span))
		return
	}
	for _, name := range fk.ReferencedColumns {
		if referenced.Column(name) == nil {
			diags.PushError(diagnostics.NewModelValidationError(
				"The relation `"+fk.ConstraintName+"` references the unknown field `"+name+"` on model `"+referenced.Name+"`.",
				table.Name, fk.Span))
		}
	}
}

// Under emulated referential integrity the engine issues extra reads against
// the referencing columns; an index keeps those from becoming table scans.
func validateMissingRelationIndexes(table *Table, mode connector.RelationMode, diags *diagnostics.Diagnostics) {
	if mode != connector.RelationModePrisma {
		return
	}
	for i := range table.ForeignKeys {
		fk := &table.ForeignKeys[i]
		if !hasCoveringIndex(table, fk.Columns) {
			diags.PushWarning(diagnostics.NewMissingIndexOnEmulatedRelationWarning(fk.Span))
		}
	}
}

func hasCoveringIndex(table *Table, columns []string) bool {
	if table.PrimaryKey != nil && prefixMatch(table.PrimaryKey.Columns, columns) {
		return true
	}
	for i := range table.Indexes {
		if prefixMatch(table.Indexes[i].Columns, columns) {
			return true
		}
	}
	return false
}

func prefixMatch(indexColumns, wanted []string) bool {
	if len(indexColumns) < len(wanted) {
		return false
	}
	for i := range wanted {
		if indexColumns[i] != wanted[i] {
			return false
		}
	}
	return true
}

type namedConstraint struct {
	name      string
	kind      connector.ConstraintKind
	tableName string
	span      diagnostics.Span
}

// checkConstraintNameCollisions enforces the connector's declared name
// uniqueness scopes. An empty scope list disables the check entirely.
func checkConstraintNameCollisions(s *Schema, conn connector.Connector, diags *diagnostics.Diagnostics) {
	scopes := conn.ConstraintViolationScopes()
	if len(scopes) == 0 {
		return
	}

	var constraints []namedConstraint
	for i := range s.Tables {
		table := &s.Tables[i]
		if table.PrimaryKey != nil && table.PrimaryKey.Name != "" {
			constraints = append(constraints, namedConstraint{
				name: table.PrimaryKey.Name, kind: connector.ConstraintKindPrimaryKey,
				tableName: table.Name, span: table.Span,
			})
		}
		for j := range table.ForeignKeys {
			if name := table.ForeignKeys[j].ConstraintName; name != "" {
				constraints = append(constraints, namedConstraint{
					name: name, kind: connector.ConstraintKindForeignKey,
					tableName: table.Name, span: table.ForeignKeys[j].Span,
				})
			}
		}
		for j := range table.Indexes {
			if name := table.Indexes[j].Name; name != "" {
				constraints = append(constraints, namedConstraint{
					name: name, kind: connector.ConstraintKindKeyOrIndex,
					tableName: table.Name, span: table.Indexes[j].Span,
				})
			}
		}
	}

	for _, scope := range scopes {
		seen := map[string]namedConstraint{}
		for _, c := range sortedByName(constraints) {
			if !scope.Includes(c.kind) {
				continue
			}
			key := c.name
			if scope.PerModel {
				key = c.tableName + "\x00" + c.name
			}
			if prev, ok := seen[key]; ok {
				// The second declaration in source order carries the error.
				loser := c
				if prev.span.Start > c.span.Start {
					loser = prev
				}
				diags.PushError(diagnostics.NewConstraintNameCollisionError(
					c.name, scope.Description(loser.tableName), loser.span))
				continue
			}
			seen[key] = c
		}
	}
}

func sortedByName(constraints []namedConstraint) []namedConstraint {
	out := make([]namedConstraint, len(constraints))
	copy(out, constraints)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].span.Start < out[j].span.Start
	})
	return out
}
