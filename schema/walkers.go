package schema

import (
	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/diagnostics"
)

// Walker adapters expose the representation to connector validation hooks
// without leaking the concrete types into the connector package.

type modelWalker struct {
	table *Table
}

func (w modelWalker) Name() string            { return w.table.Name }
func (w modelWalker) Span() diagnostics.Span  { return w.table.Span }

func (w modelWalker) Fields() []connector.FieldWalker {
	fields := make([]connector.FieldWalker, len(w.table.Columns))
	for i := range w.table.Columns {
		fields[i] = fieldWalker{table: w.table, column: &w.table.Columns[i]}
	}
	return fields
}

func (w modelWalker) Indexes() []connector.IndexWalker {
	indexes := make([]connector.IndexWalker, len(w.table.Indexes))
	for i := range w.table.Indexes {
		indexes[i] = indexWalker{index: &w.table.Indexes[i]}
	}
	return indexes
}

type fieldWalker struct {
	table  *Table
	column *Column
}

func (w fieldWalker) Name() string                               { return w.column.Name }
func (w fieldWalker) ModelName() string                          { return w.table.Name }
func (w fieldWalker) Span() diagnostics.Span                     { return w.column.Span }
func (w fieldWalker) Scalar() connector.ScalarType               { return w.column.Type }
func (w fieldWalker) NativeType() *connector.NativeTypeInstance  { return w.column.NativeType }
func (w fieldWalker) IsList() bool                               { return w.column.List }
func (w fieldWalker) IsAutoIncrement() bool                      { return w.column.AutoIncrement }

func (w fieldWalker) IsID() bool {
	return w.table.IsPrimaryKeyColumn(w.column.Name)
}

func (w fieldWalker) DefaultFunction() string {
	if w.column.Default == nil || w.column.Default.Kind != DefaultFunction {
		return ""
	}
	return w.column.Default.Value
}

type indexWalker struct {
	index *Index
}

func (w indexWalker) Name() string                         { return w.index.Name }
func (w indexWalker) Span() diagnostics.Span               { return w.index.Span }
func (w indexWalker) Columns() []string                    { return w.index.Columns }
func (w indexWalker) Algorithm() connector.IndexAlgorithm  { return w.index.Algorithm }
func (w indexWalker) IsUnique() bool                       { return w.index.Unique }

type enumWalker struct {
	enum *Enum
}

func (w enumWalker) Name() string           { return w.enum.Name }
func (w enumWalker) Span() diagnostics.Span { return w.enum.Span }
func (w enumWalker) Values() []string       { return w.enum.Values }

type relationWalker struct {
	table *Table
	fk    *ForeignKey
}

func (w relationWalker) Name() string                           { return w.fk.ConstraintName }
func (w relationWalker) Span() diagnostics.Span                 { return w.fk.Span }
func (w relationWalker) ReferencingModel() string               { return w.table.Name }
func (w relationWalker) ReferencedModel() string                { return w.fk.ReferencedTable }
func (w relationWalker) OnDelete() connector.ReferentialAction  { return w.fk.OnDelete }
func (w relationWalker) OnUpdate() connector.ReferentialAction  { return w.fk.OnUpdate }

type datasourceWalker struct {
	ds *Datasource
}

func (w datasourceWalker) Name() string           { return w.ds.Name }
func (w datasourceWalker) Span() diagnostics.Span { return w.ds.Span }
func (w datasourceWalker) URL() string            { return w.ds.URL }

func (w datasourceWalker) RelationMode() connector.RelationMode {
	if w.ds.RelationMode == "" {
		return connector.RelationModeForeignKeys
	}
	return w.ds.RelationMode
}
