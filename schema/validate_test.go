package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/diagnostics"
)

func userPostSchema() *Schema {
	return &Schema{
		Datasource: &Datasource{
			Name:     "db",
			Provider: "postgresql",
			URL:      "postgresql://localhost/app",
		},
		Tables: []Table{
			{
				Name: "User",
				Columns: []Column{
					{Name: "id", Type: connector.ScalarTypeInt, AutoIncrement: true},
					{Name: "email", Type: connector.ScalarTypeString},
				},
				PrimaryKey: &PrimaryKey{Columns: []string{"id"}},
				Indexes: []Index{
					{Name: "User_email_key", Columns: []string{"email"}, Unique: true},
				},
			},
			{
				Name: "Post",
				Columns: []Column{
					{Name: "id", Type: connector.ScalarTypeInt, AutoIncrement: true},
					{Name: "authorId", Type: connector.ScalarTypeInt},
				},
				PrimaryKey: &PrimaryKey{Columns: []string{"id"}},
				ForeignKeys: []ForeignKey{
					{
						ConstraintName:    "Post_authorId_fkey",
						Columns:           []string{"authorId"},
						ReferencedTable:   "User",
						ReferencedColumns: []string{"id"},
						OnDelete:          connector.ReferentialActionCascade,
						OnUpdate:          connector.ReferentialActionCascade,
					},
				},
			},
		},
	}
}

func TestValidateCleanSchema(t *testing.T) {
	conn, err := connector.ForProvider("postgresql")
	require.NoError(t, err)

	diags := diagnostics.NewDiagnostics()
	Validate(userPostSchema(), conn, &diags)

	assert.False(t, diags.HasErrors())
	assert.Empty(t, diags.Warnings())
}

func TestValidateCollectsAllErrors(t *testing.T) {
	conn, err := connector.ForProvider("sqlite")
	require.NoError(t, err)

	s := &Schema{
		Tables: []Table{
			{
				Name: "Document",
				Columns: []Column{
					{Name: "id", Type: connector.ScalarTypeString},
					// Json is unsupported on this connector.
					{Name: "payload", Type: connector.ScalarTypeJson},
					// So are scalar lists.
					{Name: "tags", Type: connector.ScalarTypeString, List: true},
				},
				PrimaryKey: &PrimaryKey{Columns: []string{"id"}},
			},
		},
		Enums: []Enum{
			{Name: "Role", Values: []string{"ADMIN", "USER"}},
		},
	}

	diags := diagnostics.NewDiagnostics()
	Validate(s, conn, &diags)

	require.True(t, diags.HasErrors())
	// One finding per problem, none masking the others.
	assert.GreaterOrEqual(t, len(diags.Errors()), 3)
}

func TestValidateUnknownReferences(t *testing.T) {
	conn, err := connector.ForProvider("postgresql")
	require.NoError(t, err)

	s := userPostSchema()
	s.Tables[1].ForeignKeys[0].ReferencedTable = "Account"

	diags := diagnostics.NewDiagnostics()
	Validate(s, conn, &diags)

	require.True(t, diags.HasErrors())
	assert.Contains(t, diags.Errors()[0].Message(), "unknown model `Account`")
}

func TestValidateUnknownDefaultFunction(t *testing.T) {
	conn, err := connector.ForProvider("postgresql")
	require.NoError(t, err)

	s := userPostSchema()
	s.Tables[0].Columns[1].Default = &DefaultValue{Kind: DefaultFunction, Value: "nanoid"}

	diags := diagnostics.NewDiagnostics()
	Validate(s, conn, &diags)

	require.True(t, diags.HasErrors())
	assert.Contains(t, diags.Errors()[0].Message(), "Unknown function in @default()")
}

func TestValidateNativeTypeAgainstCatalogue(t *testing.T) {
	conn, err := connector.ForProvider("postgresql")
	require.NoError(t, err)

	s := userPostSchema()
	s.Tables[0].Columns[1].NativeType = &connector.NativeTypeInstance{Name: "Bogus", Args: []int{1, 2, 3}}

	diags := diagnostics.NewDiagnostics()
	Validate(s, conn, &diags)

	require.True(t, diags.HasErrors())
	assert.Contains(t, diags.Errors()[0].Message(), "Native type Bogus is not supported")

	// A valid annotation on the right scalar type passes.
	s = userPostSchema()
	s.Tables[0].Columns[1].NativeType = &connector.NativeTypeInstance{Name: "VarChar", Args: []int{255}}
	diags = diagnostics.NewDiagnostics()
	Validate(s, conn, &diags)
	assert.False(t, diags.HasErrors())
}

func TestValidateNativeTypeArgumentShape(t *testing.T) {
	conn, err := connector.ForProvider("postgresql")
	require.NoError(t, err)

	s := userPostSchema()
	s.Tables[0].Columns[1].NativeType = &connector.NativeTypeInstance{Name: "VarChar", Args: []int{10, 20}}

	diags := diagnostics.NewDiagnostics()
	Validate(s, conn, &diags)

	require.True(t, diags.HasErrors())
	assert.Contains(t, diags.Errors()[0].Message(), "arguments")
}

func TestValidateNativeTypeScalarMismatch(t *testing.T) {
	conn, err := connector.ForProvider("postgresql")
	require.NoError(t, err)

	// An Int column cannot carry a string-shaped native type.
	s := userPostSchema()
	s.Tables[1].Columns[1].NativeType = &connector.NativeTypeInstance{Name: "VarChar", Args: []int{255}}

	diags := diagnostics.NewDiagnostics()
	Validate(s, conn, &diags)

	require.True(t, diags.HasErrors())
	assert.Contains(t, diags.Errors()[0].Message(), "not compatible with declared field type Int")
}

func TestValidateReferentialActionPerMode(t *testing.T) {
	conn, err := connector.ForProvider("postgresql")
	require.NoError(t, err)

	s := userPostSchema()
	s.Datasource.RelationMode = connector.RelationModePrisma
	s.Tables[1].ForeignKeys[0].OnDelete = connector.ReferentialActionSetDefault

	diags := diagnostics.NewDiagnostics()
	Validate(s, conn, &diags)

	require.True(t, diags.HasErrors())
	assert.Contains(t, diags.Errors()[0].Message(), "Invalid referential action: `SetDefault`")

	// The same action is fine with enforced foreign keys.
	s.Datasource.RelationMode = connector.RelationModeForeignKeys
	diags = diagnostics.NewDiagnostics()
	Validate(s, conn, &diags)
	assert.False(t, diags.HasErrors())
}

func TestValidateEmulatedRelationIndexWarning(t *testing.T) {
	conn, err := connector.ForProvider("postgresql")
	require.NoError(t, err)

	s := userPostSchema()
	s.Datasource.RelationMode = connector.RelationModePrisma

	diags := diagnostics.NewDiagnostics()
	Validate(s, conn, &diags)

	assert.False(t, diags.HasErrors())
	require.Len(t, diags.Warnings(), 1)
	assert.Contains(t, diags.Warnings()[0].Message(), "relation fields will not benefit from the index")

	// Adding a covering index silences the warning.
	s.Tables[1].Indexes = append(s.Tables[1].Indexes, Index{
		Name: "Post_authorId_idx", Columns: []string{"authorId"},
	})
	diags = diagnostics.NewDiagnostics()
	Validate(s, conn, &diags)
	assert.Empty(t, diags.Warnings())
}

func TestConstraintNameCollisions(t *testing.T) {
	pg, err := connector.ForProvider("postgresql")
	require.NoError(t, err)

	s := userPostSchema()
	// Postgres enforces one global namespace across primary keys, foreign
	// keys and defaults; the index namespace is separate.
	s.Tables[0].PrimaryKey.Name = "clash"
	s.Tables[1].ForeignKeys[0].ConstraintName = "clash"
	s.Tables[1].ForeignKeys[0].Span = diagnostics.NewSpan(100, 120, diagnostics.FileIDZero)

	diags := diagnostics.NewDiagnostics()
	Validate(s, pg, &diags)

	require.True(t, diags.HasErrors())
	assert.Contains(t, diags.Errors()[0].Message(), "constraint name `clash`")
}

func TestConstraintNameCollisionPerModelScope(t *testing.T) {
	my, err := connector.ForProvider("mysql")
	require.NoError(t, err)

	s := &Schema{
		Tables: []Table{
			{
				Name:       "A",
				Columns:    []Column{{Name: "id", Type: connector.ScalarTypeInt}, {Name: "x", Type: connector.ScalarTypeInt}},
				PrimaryKey: &PrimaryKey{Columns: []string{"id"}},
				Indexes: []Index{
					{Name: "idx", Columns: []string{"id"}},
					{Name: "idx", Columns: []string{"x"}, Span: diagnostics.NewSpan(50, 60, diagnostics.FileIDZero)},
				},
			},
			{
				Name:       "B",
				Columns:    []Column{{Name: "id", Type: connector.ScalarTypeInt}},
				PrimaryKey: &PrimaryKey{Columns: []string{"id"}},
				// Same index name on a different model is fine for MySQL.
				Indexes: []Index{{Name: "idx", Columns: []string{"id"}}},
			},
		},
	}

	diags := diagnostics.NewDiagnostics()
	Validate(s, my, &diags)

	require.Len(t, diags.Errors(), 1)
	assert.Contains(t, diags.Errors()[0].Message(), "on model `A`")
}

func TestConstraintCheckDisabledWithoutScopes(t *testing.T) {
	lite, err := connector.ForProvider("sqlite")
	require.NoError(t, err)

	// SQLite's only scope covers indexes, so colliding FK names pass.
	s := &Schema{
		Tables: []Table{
			{
				Name:       "A",
				Columns:    []Column{{Name: "id", Type: connector.ScalarTypeInt}, {Name: "bId", Type: connector.ScalarTypeInt}},
				PrimaryKey: &PrimaryKey{Columns: []string{"id"}},
				ForeignKeys: []ForeignKey{
					{ConstraintName: "fk", Columns: []string{"bId"}, ReferencedTable: "B", ReferencedColumns: []string{"id"}},
				},
			},
			{
				Name:       "B",
				Columns:    []Column{{Name: "id", Type: connector.ScalarTypeInt}, {Name: "aId", Type: connector.ScalarTypeInt}},
				PrimaryKey: &PrimaryKey{Columns: []string{"id"}},
				ForeignKeys: []ForeignKey{
					{ConstraintName: "fk", Columns: []string{"aId"}, ReferencedTable: "A", ReferencedColumns: []string{"id"}},
				},
			},
		},
	}

	diags := diagnostics.NewDiagnostics()
	Validate(s, lite, &diags)
	assert.False(t, diags.HasErrors())
}

func TestSchemaLookups(t *testing.T) {
	s := userPostSchema()

	require.NotNil(t, s.Table("User"))
	assert.Nil(t, s.Table("Missing"))
	assert.Equal(t, []string{"Post", "User"}, s.TableNames())

	user := s.Table("User")
	require.NotNil(t, user.Column("email"))
	assert.Nil(t, user.Column("missing"))
	assert.True(t, user.IsPrimaryKeyColumn("id"))
	assert.False(t, user.IsPrimaryKeyColumn("email"))
}

func TestColumnEqual(t *testing.T) {
	a := Column{Name: "age", Type: connector.ScalarTypeInt, Nullable: true}
	b := a
	assert.True(t, a.Equal(b))

	b.Nullable = false
	assert.False(t, a.Equal(b))

	b = a
	b.NativeType = &connector.NativeTypeInstance{Name: "SmallInt"}
	assert.False(t, a.Equal(b))

	a.NativeType = &connector.NativeTypeInstance{Name: "SmallInt"}
	assert.True(t, a.Equal(b))

	b.Default = &DefaultValue{Kind: DefaultLiteral, Value: "0"}
	assert.False(t, a.Equal(b))
}
