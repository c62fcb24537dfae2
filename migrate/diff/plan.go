// Package diff compares two schema representations and produces an ordered,
// deterministic migration plan.
package diff

import (
	"fmt"

	"github.com/schemaforge/schemaforge/schema"
)

// StepKind identifies the shape of a migration step.
type StepKind string

const (
	StepCreateTable    StepKind = "CreateTable"
	StepDropTable      StepKind = "DropTable"
	StepAddColumn      StepKind = "AddColumn"
	StepDropColumn     StepKind = "DropColumn"
	StepAlterColumn    StepKind = "AlterColumn"
	StepAddIndex       StepKind = "AddIndex"
	StepDropIndex      StepKind = "DropIndex"
	StepAddForeignKey  StepKind = "AddForeignKey"
	StepDropForeignKey StepKind = "DropForeignKey"
	StepCreateEnum     StepKind = "CreateEnum"
	StepDropEnum       StepKind = "DropEnum"
	StepRaw            StepKind = "Raw"
)

// Step is a single unit of a migration plan. Only the fields relevant to the
// step's kind are set.
type Step struct {
	Kind  StepKind
	Table string

	// CreateTable carries the full definition, foreign keys excluded; those
	// always become separate AddForeignKey steps.
	TableDef *schema.Table

	// AddColumn / DropColumn.
	Column *schema.Column

	// AlterColumn.
	Before *schema.Column
	After  *schema.Column

	// AlterColumn on backends that rebuild the whole table: the columns
	// present on both sides, whose rows the rebuild copies, and the
	// untouched indexes it recreates after the swap.
	CopyColumns    []string
	RebuildIndexes []*schema.Index

	// AddIndex / DropIndex.
	Index *schema.Index

	// AddForeignKey / DropForeignKey.
	ForeignKey *schema.ForeignKey

	// CreateEnum / DropEnum.
	Enum *schema.Enum

	// Raw.
	SQL string

	// Destructive marks steps that lose data when applied.
	Destructive bool
	// RequiresDataMigration marks steps that cannot succeed on non-empty
	// tables without a manual data migration.
	RequiresDataMigration bool
}

// Describe renders a one-line human readable summary of the step.
func (s Step) Describe() string {
	switch s.Kind {
	case StepCreateTable:
		return fmt.Sprintf("Create table `%s`", s.Table)
	case StepDropTable:
		return fmt.Sprintf("Drop table `%s`", s.Table)
	case StepAddColumn:
		return fmt.Sprintf("Add column `%s` to table `%s`", s.Column.Name, s.Table)
	case StepDropColumn:
		return fmt.Sprintf("Drop column `%s` from table `%s`", s.Column.Name, s.Table)
	case StepAlterColumn:
		return fmt.Sprintf("Alter column `%s` on table `%s`", s.After.Name, s.Table)
	case StepAddIndex:
		return fmt.Sprintf("Create index `%s` on table `%s`", s.Index.Name, s.Table)
	case StepDropIndex:
		return fmt.Sprintf("Drop index `%s` on table `%s`", s.Index.Name, s.Table)
	case StepAddForeignKey:
		return fmt.Sprintf("Add foreign key `%s` on table `%s`", s.ForeignKey.ConstraintName, s.Table)
	case StepDropForeignKey:
		return fmt.Sprintf("Drop foreign key `%s` on table `%s`", s.ForeignKey.ConstraintName, s.Table)
	case StepCreateEnum:
		return fmt.Sprintf("Create enum `%s`", s.Enum.Name)
	case StepDropEnum:
		return fmt.Sprintf("Drop enum `%s`", s.Enum.Name)
	case StepRaw:
		return "Execute raw statement"
	default:
		return string(s.Kind)
	}
}

// Plan is an ordered list of migration steps for one provider. A plan is
// immutable once returned; callers must not reorder or filter its steps.
type Plan struct {
	Provider string
	Steps    []Step
	Warnings []string
}

// IsEmpty reports whether the plan contains no work.
func (p *Plan) IsEmpty() bool {
	return len(p.Steps) == 0
}

// HasDestructiveChanges reports whether any step loses data.
func (p *Plan) HasDestructiveChanges() bool {
	for _, s := range p.Steps {
		if s.Destructive {
			return true
		}
	}
	return false
}

// RequiresDataMigration reports whether any step is tagged as needing a
// manual data migration.
func (p *Plan) RequiresDataMigration() bool {
	for _, s := range p.Steps {
		if s.RequiresDataMigration {
			return true
		}
	}
	return false
}

// Renderer turns plan steps into SQL statements for one backend. The sqlgen
// package provides the default implementations.
type Renderer interface {
	RenderStep(step Step) ([]string, error)
}

// Render flattens the plan into the exact statement sequence to execute.
func (p *Plan) Render(r Renderer) ([]string, error) {
	var out []string
	for i, step := range p.Steps {
		stmts, err := r.RenderStep(step)
		if err != nil {
			return nil, fmt.Errorf("rendering step %d (%s): %w", i, step.Describe(), err)
		}
		out = append(out, stmts...)
	}
	return out, nil
}
