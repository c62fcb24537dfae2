package connector

import "github.com/schemaforge/schemaforge/diagnostics"

// The walker interfaces describe the read-only view of schema entities the
// validation hooks receive. The schema package implements them; connectors
// never see the concrete representation.

// ModelWalker is the validation view of one table/model.
type ModelWalker interface {
	Name() string
	Span() diagnostics.Span
	Fields() []FieldWalker
	Indexes() []IndexWalker
}

// FieldWalker is the validation view of one column/field.
type FieldWalker interface {
	Name() string
	ModelName() string
	Span() diagnostics.Span
	Scalar() ScalarType
	NativeType() *NativeTypeInstance
	IsList() bool
	IsID() bool
	IsAutoIncrement() bool
	// DefaultFunction returns the default value function name, or "" when the
	// default is absent or a literal.
	DefaultFunction() string
}

// IndexWalker is the validation view of one index or unique constraint.
type IndexWalker interface {
	Name() string
	Span() diagnostics.Span
	Columns() []string
	Algorithm() IndexAlgorithm
	IsUnique() bool
}

// EnumWalker is the validation view of one enum definition.
type EnumWalker interface {
	Name() string
	Span() diagnostics.Span
	Values() []string
}

// RelationWalker is the validation view of one relation/foreign key.
type RelationWalker interface {
	Name() string
	Span() diagnostics.Span
	ReferencingModel() string
	ReferencedModel() string
	OnDelete() ReferentialAction
	OnUpdate() ReferentialAction
}

// DatasourceWalker is the validation view of the datasource configuration.
type DatasourceWalker interface {
	Name() string
	Span() diagnostics.Span
	URL() string
	RelationMode() RelationMode
}
