package sqlgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/migrate/diff"
	"github.com/schemaforge/schemaforge/schema"
)

func rendererFor(t *testing.T, provider string) diff.Renderer {
	t.Helper()
	conn, err := connector.ForProvider(provider)
	require.NoError(t, err)
	r, err := ForConnector(conn)
	require.NoError(t, err)
	return r
}

func sampleTable() *schema.Table {
	return &schema.Table{
		Name: "User",
		Columns: []schema.Column{
			{Name: "id", Type: connector.ScalarTypeInt, AutoIncrement: true},
			{Name: "email", Type: connector.ScalarTypeString},
			{Name: "createdAt", Type: connector.ScalarTypeDateTime,
				Default: &schema.DefaultValue{Kind: schema.DefaultFunction, Value: "now"}},
		},
		PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
	}
}

func TestPostgresCreateTable(t *testing.T) {
	r := rendererFor(t, "postgresql")

	stmts, err := r.RenderStep(diff.Step{Kind: diff.StepCreateTable, Table: "User", TableDef: sampleTable()})
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	sql := stmts[0]
	assert.Contains(t, sql, `CREATE TABLE "User"`)
	assert.Contains(t, sql, `"id" SERIAL NOT NULL`)
	assert.Contains(t, sql, `"email" TEXT NOT NULL`)
	assert.Contains(t, sql, `"createdAt" TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP`)
	assert.Contains(t, sql, `PRIMARY KEY ("id")`)
}

func TestMySQLCreateTable(t *testing.T) {
	r := rendererFor(t, "mysql")

	stmts, err := r.RenderStep(diff.Step{Kind: diff.StepCreateTable, Table: "User", TableDef: sampleTable()})
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	sql := stmts[0]
	assert.Contains(t, sql, "CREATE TABLE `User`")
	assert.Contains(t, sql, "`id` INT AUTO_INCREMENT NOT NULL")
	assert.Contains(t, sql, "`email` VARCHAR(191) NOT NULL")
	assert.Contains(t, sql, "PRIMARY KEY (`id`)")
}

func TestSQLiteCreateTableInlinesForeignKeys(t *testing.T) {
	r := rendererFor(t, "sqlite")

	table := &schema.Table{
		Name: "Post",
		Columns: []schema.Column{
			{Name: "id", Type: connector.ScalarTypeInt},
			{Name: "authorId", Type: connector.ScalarTypeInt},
		},
		PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
		ForeignKeys: []schema.ForeignKey{{
			ConstraintName:    "Post_authorId_fkey",
			Columns:           []string{"authorId"},
			ReferencedTable:   "User",
			ReferencedColumns: []string{"id"},
			OnDelete:          connector.ReferentialActionCascade,
			OnUpdate:          connector.ReferentialActionNoAction,
		}},
	}

	stmts, err := r.RenderStep(diff.Step{Kind: diff.StepCreateTable, Table: "Post", TableDef: table})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], `FOREIGN KEY ("authorId") REFERENCES "User" ("id") ON DELETE CASCADE ON UPDATE NO ACTION`)

	// The standalone foreign key step renders to nothing.
	fkStmts, err := r.RenderStep(diff.Step{Kind: diff.StepAddForeignKey, Table: "Post", ForeignKey: &table.ForeignKeys[0]})
	require.NoError(t, err)
	assert.Empty(t, fkStmts)
}

func TestPostgresAlterColumnStatements(t *testing.T) {
	r := rendererFor(t, "postgresql")

	before := &schema.Column{Name: "email", Type: connector.ScalarTypeString, Nullable: true}
	after := &schema.Column{Name: "email", Type: connector.ScalarTypeString,
		NativeType: &connector.NativeTypeInstance{Name: "VarChar", Args: []int{255}},
		Default:    &schema.DefaultValue{Kind: schema.DefaultLiteral, Value: "unknown"}}

	stmts, err := r.RenderStep(diff.Step{Kind: diff.StepAlterColumn, Table: "User", Before: before, After: after})
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Equal(t, `ALTER TABLE "User" ALTER COLUMN "email" SET DATA TYPE VARCHAR(255)`, stmts[0])
	assert.Equal(t, `ALTER TABLE "User" ALTER COLUMN "email" SET NOT NULL`, stmts[1])
	assert.Equal(t, `ALTER TABLE "User" ALTER COLUMN "email" SET DEFAULT 'unknown'`, stmts[2])
}

func TestSQLiteAlterColumnRebuildsTable(t *testing.T) {
	r := rendererFor(t, "sqlite")

	table := sampleTable()
	before := &schema.Column{Name: "email", Type: connector.ScalarTypeString, Nullable: true}
	after := table.Column("email")

	stmts, err := r.RenderStep(diff.Step{
		Kind: diff.StepAlterColumn, Table: "User",
		Before: before, After: after, TableDef: table,
	})
	require.NoError(t, err)
	require.Len(t, stmts, 4)
	assert.Contains(t, stmts[0], `CREATE TABLE "_schemaforge_new_User"`)
	assert.Contains(t, stmts[1], `INSERT INTO "_schemaforge_new_User"`)
	assert.Equal(t, `DROP TABLE "User"`, stmts[2])
	assert.Contains(t, stmts[3], `RENAME TO "User"`)
}

func TestSQLiteRebuildCopiesOnlySurvivingColumns(t *testing.T) {
	r := rendererFor(t, "sqlite")

	table := sampleTable()
	table.Columns = append(table.Columns, schema.Column{
		Name: "age", Type: connector.ScalarTypeInt, Nullable: true,
	})
	before := &schema.Column{Name: "email", Type: connector.ScalarTypeString, Nullable: true}

	stmts, err := r.RenderStep(diff.Step{
		Kind: diff.StepAlterColumn, Table: "User",
		Before: before, After: table.Column("email"), TableDef: table,
		CopyColumns: []string{"id", "email", "createdAt"},
		RebuildIndexes: []*schema.Index{
			{Name: "User_email_key", Columns: []string{"email"}, Unique: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, stmts, 5)
	// The new column exists only in the rebuilt definition, never in the copy.
	assert.Contains(t, stmts[0], `"age" INTEGER`)
	assert.Equal(t, `INSERT INTO "_schemaforge_new_User" ("id", "email", "createdAt") SELECT "id", "email", "createdAt" FROM "User"`, stmts[1])
	assert.Equal(t, `DROP TABLE "User"`, stmts[2])
	assert.Contains(t, stmts[3], `RENAME TO "User"`)
	// Dropping the old table took its indexes with it.
	assert.Equal(t, `CREATE UNIQUE INDEX "User_email_key" ON "User" ("email")`, stmts[4])
}

func TestIndexRendering(t *testing.T) {
	idx := &schema.Index{Name: "User_email_key", Columns: []string{"email"}, Unique: true}

	pg := rendererFor(t, "postgresql")
	stmts, err := pg.RenderStep(diff.Step{Kind: diff.StepAddIndex, Table: "User", Index: idx})
	require.NoError(t, err)
	assert.Equal(t, `CREATE UNIQUE INDEX "User_email_key" ON "User" ("email")`, stmts[0])

	hashIdx := &schema.Index{Name: "idx_h", Columns: []string{"email"}, Algorithm: connector.IndexAlgorithmHash}
	stmts, err = pg.RenderStep(diff.Step{Kind: diff.StepAddIndex, Table: "User", Index: hashIdx})
	require.NoError(t, err)
	assert.Equal(t, `CREATE INDEX "idx_h" ON "User" USING HASH ("email")`, stmts[0])

	my := rendererFor(t, "mysql")
	stmts, err = my.RenderStep(diff.Step{Kind: diff.StepAddIndex, Table: "User", Index: hashIdx})
	require.NoError(t, err)
	assert.Equal(t, "CREATE INDEX `idx_h` ON `User` (`email`) USING HASH", stmts[0])
}

func TestForeignKeyRendering(t *testing.T) {
	r := rendererFor(t, "postgresql")

	fk := &schema.ForeignKey{
		ConstraintName:    "Post_authorId_fkey",
		Columns:           []string{"authorId"},
		ReferencedTable:   "User",
		ReferencedColumns: []string{"id"},
		OnDelete:          connector.ReferentialActionSetNull,
		OnUpdate:          connector.ReferentialActionCascade,
	}

	stmts, err := r.RenderStep(diff.Step{Kind: diff.StepAddForeignKey, Table: "Post", ForeignKey: fk})
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "Post" ADD CONSTRAINT "Post_authorId_fkey" FOREIGN KEY ("authorId") REFERENCES "User" ("id") ON DELETE SET NULL ON UPDATE CASCADE`, stmts[0])

	stmts, err = r.RenderStep(diff.Step{Kind: diff.StepDropForeignKey, Table: "Post", ForeignKey: fk})
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "Post" DROP CONSTRAINT "Post_authorId_fkey"`, stmts[0])
}

func TestEnumRendering(t *testing.T) {
	enum := &schema.Enum{Name: "Role", Values: []string{"ADMIN", "USER"}}

	pg := rendererFor(t, "postgresql")
	stmts, err := pg.RenderStep(diff.Step{Kind: diff.StepCreateEnum, Enum: enum})
	require.NoError(t, err)
	assert.Equal(t, `CREATE TYPE "Role" AS ENUM ('ADMIN', 'USER')`, stmts[0])

	lite := rendererFor(t, "sqlite")
	_, err = lite.RenderStep(diff.Step{Kind: diff.StepCreateEnum, Enum: enum})
	require.Error(t, err)
}

func enumTable() *schema.Table {
	return &schema.Table{
		Name: "User",
		Columns: []schema.Column{
			{Name: "id", Type: connector.ScalarTypeInt, AutoIncrement: true},
			{Name: "role", Type: connector.ScalarTypeEnum,
				NativeType: &connector.NativeTypeInstance{Name: "Role"},
				Default:    &schema.DefaultValue{Kind: schema.DefaultLiteral, Value: "USER"}},
		},
		PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
	}
}

func TestPostgresEnumColumnUsesTypeName(t *testing.T) {
	r := rendererFor(t, "postgresql")

	stmts, err := r.RenderStep(diff.Step{Kind: diff.StepCreateTable, Table: "User", TableDef: enumTable()})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], `"role" "Role" NOT NULL DEFAULT 'USER'`)
}

func TestMySQLEnumColumnRendersInline(t *testing.T) {
	r := rendererFor(t, "mysql")
	enum := &schema.Enum{Name: "Role", Values: []string{"ADMIN", "USER"}}

	// The enum declaration renders to nothing but precedes dependent columns
	// in every plan.
	stmts, err := r.RenderStep(diff.Step{Kind: diff.StepCreateEnum, Enum: enum})
	require.NoError(t, err)
	assert.Empty(t, stmts)

	stmts, err = r.RenderStep(diff.Step{Kind: diff.StepCreateTable, Table: "User", TableDef: enumTable()})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "`role` ENUM('ADMIN', 'USER') NOT NULL DEFAULT 'USER'")

	col := &schema.Column{Name: "backup", Type: connector.ScalarTypeEnum,
		NativeType: &connector.NativeTypeInstance{Name: "Role"}, Nullable: true}
	stmts, err = r.RenderStep(diff.Step{Kind: diff.StepAddColumn, Table: "User", Column: col})
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE `User` ADD COLUMN `backup` ENUM('ADMIN', 'USER')", stmts[0])

	// A column of an enum the plan never declares cannot render.
	fresh := rendererFor(t, "mysql")
	_, err = fresh.RenderStep(diff.Step{Kind: diff.StepCreateTable, Table: "User", TableDef: enumTable()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `enum "Role"`)
}

func TestMSSQLRendering(t *testing.T) {
	r := rendererFor(t, "sqlserver")

	stmts, err := r.RenderStep(diff.Step{Kind: diff.StepCreateTable, Table: "User", TableDef: sampleTable()})
	require.NoError(t, err)
	sql := stmts[0]
	assert.Contains(t, sql, "CREATE TABLE [User]")
	assert.Contains(t, sql, "[id] INT IDENTITY(1,1) NOT NULL")
	assert.Contains(t, sql, "[email] NVARCHAR(1000) NOT NULL")
}

func TestPlanRenderIsDeterministic(t *testing.T) {
	conn, err := connector.ForProvider("postgresql")
	require.NoError(t, err)
	r, err := ForConnector(conn)
	require.NoError(t, err)
	d := diff.NewDiffer(conn)

	to := &schema.Schema{Tables: []schema.Table{*sampleTable()}}

	render := func() string {
		plan, err := d.Diff(&schema.Schema{}, to)
		require.NoError(t, err)
		stmts, err := plan.Render(r)
		require.NoError(t, err)
		return strings.Join(stmts, ";\n")
	}

	assert.Equal(t, render(), render())
}
