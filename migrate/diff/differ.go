package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/diagnostics"
	"github.com/schemaforge/schemaforge/schema"
)

// PlanError is returned when the desired schema cannot be planned for the
// target connector. It carries every finding at once; no partial plan
// accompanies it.
type PlanError struct {
	Diagnostics diagnostics.Diagnostics
}

func (e *PlanError) Error() string {
	errs := e.Diagnostics.Errors()
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Message()
	}
	return fmt.Sprintf("schema is not compatible with the target connector:\n%s", strings.Join(msgs, "\n"))
}

// Differ compares two schemas for one connector.
type Differ struct {
	conn    connector.Connector
	flavour diffFlavour
}

// NewDiffer creates a differ for the given connector.
func NewDiffer(conn connector.Connector) *Differ {
	return &Differ{conn: conn, flavour: flavourFor(conn.Flavour())}
}

// Diff computes the ordered migration plan that turns from into to.
// Entities are matched by name; a rename therefore surfaces as a drop
// followed by a create. Diff is pure and safe for concurrent use.
func (d *Differ) Diff(from, to *schema.Schema) (*Plan, error) {
	// Capability gating happens here, at planning time. A schema that uses
	// features the connector lacks never produces a plan.
	diags := diagnostics.NewDiagnostics()
	schema.Validate(to, d.conn, &diags)
	if diags.HasErrors() {
		return nil, &PlanError{Diagnostics: diags}
	}

	plan := &Plan{Provider: d.conn.ProviderName()}
	for _, w := range diags.Warnings() {
		plan.Warnings = append(plan.Warnings, w.Message())
	}

	var steps []Step
	steps = append(steps, d.diffEnums(from, to)...)
	steps = append(steps, d.diffTables(from, to)...)

	plan.Steps = orderSteps(steps)
	return plan, nil
}

func (d *Differ) diffEnums(from, to *schema.Schema) []Step {
	var steps []Step
	for _, name := range enumNames(to) {
		if from.Enum(name) == nil {
			steps = append(steps, Step{Kind: StepCreateEnum, Enum: to.Enum(name)})
		}
	}
	for _, name := range enumNames(from) {
		if to.Enum(name) == nil {
			steps = append(steps, Step{Kind: StepDropEnum, Enum: from.Enum(name), Destructive: true})
		}
	}
	return steps
}

func (d *Differ) diffTables(from, to *schema.Schema) []Step {
	var steps []Step

	fromTables := map[string]*schema.Table{}
	for i := range from.Tables {
		if d.flavour.ignores(from.Tables[i].Name) {
			continue
		}
		fromTables[d.flavour.tableKey(from.Tables[i].Name)] = &from.Tables[i]
	}
	toTables := map[string]*schema.Table{}
	for i := range to.Tables {
		if d.flavour.ignores(to.Tables[i].Name) {
			continue
		}
		toTables[d.flavour.tableKey(to.Tables[i].Name)] = &to.Tables[i]
	}

	for _, name := range to.TableNames() {
		target, ok := toTables[d.flavour.tableKey(name)]
		if !ok {
			continue
		}
		if source, exists := fromTables[d.flavour.tableKey(name)]; exists {
			steps = append(steps, d.diffTablePair(source, target)...)
		} else {
			steps = append(steps, d.createTableSteps(target)...)
		}
	}

	for _, name := range from.TableNames() {
		source, ok := fromTables[d.flavour.tableKey(name)]
		if !ok {
			continue
		}
		if _, exists := toTables[d.flavour.tableKey(name)]; !exists {
			steps = append(steps, d.dropTableSteps(source)...)
		}
	}

	return steps
}

// createTableSteps emits the table definition plus one step per index and
// foreign key. Foreign keys are always separate so ordering can place them
// after every table they touch.
func (d *Differ) createTableSteps(table *schema.Table) []Step {
	steps := []Step{{Kind: StepCreateTable, Table: table.Name, TableDef: table}}
	for i := range table.Indexes {
		steps = append(steps, Step{Kind: StepAddIndex, Table: table.Name, Index: &table.Indexes[i]})
	}
	for i := range table.ForeignKeys {
		steps = append(steps, Step{Kind: StepAddForeignKey, Table: table.Name, ForeignKey: &table.ForeignKeys[i]})
	}
	return steps
}

func (d *Differ) dropTableSteps(table *schema.Table) []Step {
	var steps []Step
	for i := range table.ForeignKeys {
		steps = append(steps, Step{Kind: StepDropForeignKey, Table: table.Name, ForeignKey: &table.ForeignKeys[i]})
	}
	steps = append(steps, Step{Kind: StepDropTable, Table: table.Name, TableDef: table, Destructive: true})
	return steps
}

func (d *Differ) diffTablePair(source, target *schema.Table) []Step {
	var columnSteps []Step

	for i := range target.Columns {
		col := &target.Columns[i]
		if prev := source.Column(col.Name); prev == nil {
			columnSteps = append(columnSteps, d.addColumnStep(target, col))
		} else if !prev.Equal(*col) {
			// The full target definition rides along for backends that can
			// only express column changes as a table rebuild.
			step := d.alterColumnStep(target, prev, col)
			step.TableDef = target
			columnSteps = append(columnSteps, step)
		}
	}
	for i := range source.Columns {
		col := &source.Columns[i]
		if target.Column(col.Name) == nil {
			// Dropping a column loses data but never blocks on existing rows.
			columnSteps = append(columnSteps, Step{Kind: StepDropColumn, Table: target.Name, Column: col, Destructive: true})
		}
	}

	if d.flavour.rebuildOnAlter {
		columnSteps = collapseColumnSteps(source, target, columnSteps)
	}
	steps := columnSteps

	for i := range target.Indexes {
		idx := &target.Indexes[i]
		prev := source.Index(idx.Name)
		switch {
		case prev == nil:
			steps = append(steps, Step{Kind: StepAddIndex, Table: target.Name, Index: idx})
		case !prev.Equal(*idx):
			steps = append(steps,
				Step{Kind: StepDropIndex, Table: target.Name, Index: prev},
				Step{Kind: StepAddIndex, Table: target.Name, Index: idx})
		}
	}
	for i := range source.Indexes {
		idx := &source.Indexes[i]
		if target.Index(idx.Name) == nil {
			steps = append(steps, Step{Kind: StepDropIndex, Table: target.Name, Index: idx})
		}
	}

	for i := range target.ForeignKeys {
		fk := &target.ForeignKeys[i]
		prev := source.ForeignKey(fk.ConstraintName)
		switch {
		case prev == nil:
			steps = append(steps, Step{Kind: StepAddForeignKey, Table: target.Name, ForeignKey: fk})
		case !prev.Equal(*fk):
			steps = append(steps,
				Step{Kind: StepDropForeignKey, Table: target.Name, ForeignKey: prev},
				Step{Kind: StepAddForeignKey, Table: target.Name, ForeignKey: fk})
		}
	}
	for i := range source.ForeignKeys {
		fk := &source.ForeignKeys[i]
		if target.ForeignKey(fk.ConstraintName) == nil {
			steps = append(steps, Step{Kind: StepDropForeignKey, Table: target.Name, ForeignKey: fk})
		}
	}

	return steps
}

// collapseColumnSteps folds every column change on one table pair into a
// single rebuild step. The rebuild recreates the full target shape, so
// standalone add and drop steps for the same table would apply twice. The
// copy covers only columns present on both sides, and indexes the plan does
// not otherwise touch ride along because dropping the old table discards
// them.
func collapseColumnSteps(source, target *schema.Table, steps []Step) []Step {
	hasAlter := false
	for _, s := range steps {
		if s.Kind == StepAlterColumn {
			hasAlter = true
			break
		}
	}
	if !hasAlter {
		return steps
	}

	merged := Step{Kind: StepAlterColumn, Table: target.Name, TableDef: target}
	for _, s := range steps {
		merged.Destructive = merged.Destructive || s.Destructive
		merged.RequiresDataMigration = merged.RequiresDataMigration || s.RequiresDataMigration
		if s.Kind == StepAlterColumn && merged.Before == nil {
			merged.Before, merged.After = s.Before, s.After
		}
	}
	for i := range target.Columns {
		if source.Column(target.Columns[i].Name) != nil {
			merged.CopyColumns = append(merged.CopyColumns, target.Columns[i].Name)
		}
	}
	for i := range target.Indexes {
		idx := &target.Indexes[i]
		if prev := source.Index(idx.Name); prev != nil && prev.Equal(*idx) {
			merged.RebuildIndexes = append(merged.RebuildIndexes, idx)
		}
	}
	return []Step{merged}
}

func (d *Differ) addColumnStep(table *schema.Table, col *schema.Column) Step {
	step := Step{Kind: StepAddColumn, Table: table.Name, Column: col}
	// A new NOT NULL column without a default cannot be added to a table
	// that already holds rows.
	if !col.Nullable && col.Default == nil && !col.AutoIncrement {
		step.RequiresDataMigration = true
	}
	return step
}

func (d *Differ) alterColumnStep(table *schema.Table, before, after *schema.Column) Step {
	step := Step{Kind: StepAlterColumn, Table: table.Name, Before: before, After: after}
	if before.Nullable && !after.Nullable && after.Default == nil {
		step.RequiresDataMigration = true
	}
	if typeChanged(before, after) {
		// A cast may truncate or fail on existing values.
		step.Destructive = true
	}
	return step
}

func typeChanged(before, after *schema.Column) bool {
	if before.Type != after.Type || before.List != after.List {
		return true
	}
	if (before.NativeType == nil) != (after.NativeType == nil) {
		return true
	}
	return before.NativeType != nil && !before.NativeType.Equal(*after.NativeType)
}

func enumNames(s *schema.Schema) []string {
	names := make([]string, len(s.Enums))
	for i := range s.Enums {
		names[i] = s.Enums[i].Name
	}
	sort.Strings(names)
	return names
}
