package sdl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/diagnostics"
	"github.com/schemaforge/schemaforge/schema"
)

const blogDefinition = `
datasource db {
  provider = "postgresql"
  url      = "postgres://localhost/blog"
}

enum Role {
  ADMIN
  USER
}

table User {
  id        Int      @id @autoincrement
  email     String   @unique @db.VarChar(255)
  role      Role     @default(ADMIN)
  createdAt DateTime @default(now())
  bio       String?
}

table Post {
  id       Int    @id @autoincrement
  title    String
  authorId Int

  @@index([authorId])
  @@fk([authorId], references: User([id]), onDelete: Cascade)
}
`

func TestParseBlogDefinition(t *testing.T) {
	s, err := Parse("blog.sdl", blogDefinition)
	require.NoError(t, err)

	require.NotNil(t, s.Datasource)
	assert.Equal(t, "db", s.Datasource.Name)
	assert.Equal(t, "postgresql", s.Datasource.Provider)
	assert.Equal(t, "postgres://localhost/blog", s.Datasource.URL)
	assert.Equal(t, connector.RelationModeForeignKeys, s.Datasource.RelationMode)

	require.Len(t, s.Enums, 1)
	assert.Equal(t, []string{"ADMIN", "USER"}, s.Enums[0].Values)

	require.Len(t, s.Tables, 2)

	user := s.Table("User")
	require.NotNil(t, user)
	require.Len(t, user.Columns, 5)

	id := user.Column("id")
	require.NotNil(t, id)
	assert.Equal(t, connector.ScalarTypeInt, id.Type)
	assert.True(t, id.AutoIncrement)
	require.NotNil(t, user.PrimaryKey)
	assert.Equal(t, []string{"id"}, user.PrimaryKey.Columns)

	email := user.Column("email")
	require.NotNil(t, email)
	require.NotNil(t, email.NativeType)
	assert.Equal(t, "VarChar", email.NativeType.Name)
	assert.Equal(t, []int{255}, email.NativeType.Args)
	require.Len(t, user.Indexes, 1)
	assert.Equal(t, "User_email_key", user.Indexes[0].Name)
	assert.True(t, user.Indexes[0].Unique)

	role := user.Column("role")
	require.NotNil(t, role)
	assert.Equal(t, connector.ScalarTypeEnum, role.Type)
	require.NotNil(t, role.Default)
	assert.Equal(t, schema.DefaultLiteral, role.Default.Kind)
	assert.Equal(t, "ADMIN", role.Default.Value)

	created := user.Column("createdAt")
	require.NotNil(t, created)
	require.NotNil(t, created.Default)
	assert.Equal(t, schema.DefaultFunction, created.Default.Kind)
	assert.Equal(t, "now", created.Default.Value)

	bio := user.Column("bio")
	require.NotNil(t, bio)
	assert.True(t, bio.Nullable)

	post := s.Table("Post")
	require.NotNil(t, post)
	require.Len(t, post.Indexes, 1)
	assert.Equal(t, "Post_authorId_idx", post.Indexes[0].Name)
	require.Len(t, post.ForeignKeys, 1)
	fk := post.ForeignKeys[0]
	assert.Equal(t, "Post_authorId_fkey", fk.ConstraintName)
	assert.Equal(t, "User", fk.ReferencedTable)
	assert.Equal(t, []string{"id"}, fk.ReferencedColumns)
	assert.Equal(t, connector.ReferentialActionCascade, fk.OnDelete)
	assert.Equal(t, connector.ReferentialActionNoAction, fk.OnUpdate)
}

func TestParseCompoundIDAndNamedConstraints(t *testing.T) {
	s, err := Parse("test.sdl", `
table Membership {
  userId  Int
  groupId Int
  since   DateTime @default(now())

  @@id([userId, groupId], name: "Membership_pkey")
  @@unique([userId, since], name: "user_once_per_instant")
  @@index([groupId], type: Hash)
}
`)
	require.NoError(t, err)

	table := s.Table("Membership")
	require.NotNil(t, table)
	require.NotNil(t, table.PrimaryKey)
	assert.Equal(t, "Membership_pkey", table.PrimaryKey.Name)
	assert.Equal(t, []string{"userId", "groupId"}, table.PrimaryKey.Columns)

	require.Len(t, table.Indexes, 2)
	assert.Equal(t, "user_once_per_instant", table.Indexes[0].Name)
	assert.True(t, table.Indexes[0].Unique)
	assert.Equal(t, connector.IndexAlgorithmHash, table.Indexes[1].Algorithm)
}

func TestParseDbGeneratedAndListColumns(t *testing.T) {
	s, err := Parse("test.sdl", `
table Doc {
  id   Int      @id
  tags String[]
  slug String   @default(dbgenerated("lower(title)"))
}
`)
	require.NoError(t, err)

	table := s.Table("Doc")
	require.NotNil(t, table)
	assert.True(t, table.Column("tags").List)

	slug := table.Column("slug")
	require.NotNil(t, slug.Default)
	assert.Equal(t, schema.DefaultDBGenerated, slug.Default.Kind)
	assert.Equal(t, "lower(title)", slug.Default.Value)
}

func TestParseCollectsAllSemanticErrors(t *testing.T) {
	_, err := Parse("test.sdl", `
table Broken {
  a Whatever
  b Strange
  c Int @nonsense
}
`)
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.GreaterOrEqual(t, len(parseErr.Diagnostics.Errors()), 3)
}

func TestParseRejectsDuplicatePrimaryKey(t *testing.T) {
	_, err := Parse("test.sdl", `
table Dup {
  a Int @id
  b Int @id
}
`)
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Error(), "already has a primary key")
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse("test.sdl", `table { nope`)
	require.Error(t, err)
}

func TestParsedSchemaValidates(t *testing.T) {
	s, err := Parse("blog.sdl", blogDefinition)
	require.NoError(t, err)

	conn, err := connector.ForProvider("postgresql")
	require.NoError(t, err)

	diags := diagnostics.NewDiagnostics()
	schema.Validate(s, conn, &diags)
	assert.False(t, diags.HasErrors())
}
