// Package schema holds the backend-independent schema representation shared
// by the desired (declared) and introspected (live) sides of a diff.
package schema

import (
	"sort"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/diagnostics"
)

// Schema is a full database schema: tables, enums and the datasource they
// belong to. The zero value is an empty schema.
type Schema struct {
	Datasource *Datasource
	Tables     []Table
	Enums      []Enum
}

// Datasource carries the connection configuration attached to a schema.
type Datasource struct {
	Name         string
	Provider     string
	URL          string
	RelationMode connector.RelationMode
	Span         diagnostics.Span
}

// Table is a single table definition.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  *PrimaryKey
	Indexes     []Index
	ForeignKeys []ForeignKey
	Span        diagnostics.Span
}

// Column is a single column definition. NativeType is nil when the column
// uses the connector's default mapping for its scalar type.
type Column struct {
	Name          string
	Type          connector.ScalarType
	NativeType    *connector.NativeTypeInstance
	Nullable      bool
	List          bool
	AutoIncrement bool
	Default       *DefaultValue
	Span          diagnostics.Span
}

// DefaultKind distinguishes literal defaults from function calls.
type DefaultKind int

const (
	DefaultLiteral DefaultKind = iota
	DefaultFunction
	DefaultDBGenerated
)

// DefaultValue is a column default. Value holds the literal text, the
// function name or the raw database expression depending on Kind.
type DefaultValue struct {
	Kind  DefaultKind
	Value string
}

// PrimaryKey is a primary key constraint. Name is empty when the constraint
// is unnamed.
type PrimaryKey struct {
	Name    string
	Columns []string
}

// Index is an index or unique constraint.
type Index struct {
	Name      string
	Columns   []string
	Unique    bool
	Algorithm connector.IndexAlgorithm
	Span      diagnostics.Span
}

// ForeignKey is a foreign key constraint on the owning table.
type ForeignKey struct {
	ConstraintName    string
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
	OnDelete          connector.ReferentialAction
	OnUpdate          connector.ReferentialAction
	Span              diagnostics.Span
}

// Enum is a database enum type definition.
type Enum struct {
	Name   string
	Values []string
	Span   diagnostics.Span
}

// Table returns the table with the given name, or nil.
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Enum returns the enum with the given name, or nil.
func (s *Schema) Enum(name string) *Enum {
	for i := range s.Enums {
		if s.Enums[i].Name == name {
			return &s.Enums[i]
		}
	}
	return nil
}

// TableNames returns all table names in lexicographic order.
func (s *Schema) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i := range s.Tables {
		names[i] = s.Tables[i].Name
	}
	sort.Strings(names)
	return names
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Index returns the index with the given name, or nil.
func (t *Table) Index(name string) *Index {
	for i := range t.Indexes {
		if t.Indexes[i].Name == name {
			return &t.Indexes[i]
		}
	}
	return nil
}

// ForeignKey returns the foreign key with the given constraint name, or nil.
func (t *Table) ForeignKey(name string) *ForeignKey {
	for i := range t.ForeignKeys {
		if t.ForeignKeys[i].ConstraintName == name {
			return &t.ForeignKeys[i]
		}
	}
	return nil
}

// IsPrimaryKeyColumn reports whether the column participates in the table's
// primary key.
func (t *Table) IsPrimaryKeyColumn(name string) bool {
	if t.PrimaryKey == nil {
		return false
	}
	for _, c := range t.PrimaryKey.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Equal reports whether two column definitions are interchangeable: same
// type, native type, nullability, list shape, autoincrement and default.
func (c Column) Equal(other Column) bool {
	if c.Name != other.Name || c.Type != other.Type || c.Nullable != other.Nullable ||
		c.List != other.List || c.AutoIncrement != other.AutoIncrement {
		return false
	}
	if (c.NativeType == nil) != (other.NativeType == nil) {
		return false
	}
	if c.NativeType != nil && !c.NativeType.Equal(*other.NativeType) {
		return false
	}
	if (c.Default == nil) != (other.Default == nil) {
		return false
	}
	if c.Default != nil && *c.Default != *other.Default {
		return false
	}
	return true
}

// Equal reports whether two indexes cover the same columns the same way.
func (i Index) Equal(other Index) bool {
	if i.Name != other.Name || i.Unique != other.Unique || i.Algorithm != other.Algorithm {
		return false
	}
	return equalStrings(i.Columns, other.Columns)
}

// Equal reports whether two foreign keys express the same reference.
func (f ForeignKey) Equal(other ForeignKey) bool {
	if f.ConstraintName != other.ConstraintName || f.ReferencedTable != other.ReferencedTable {
		return false
	}
	if f.OnDelete != other.OnDelete || f.OnUpdate != other.OnUpdate {
		return false
	}
	return equalStrings(f.Columns, other.Columns) &&
		equalStrings(f.ReferencedColumns, other.ReferencedColumns)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
