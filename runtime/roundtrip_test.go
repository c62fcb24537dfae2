package runtime

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/migrate/diff"
	"github.com/schemaforge/schemaforge/migrate/introspect"
	"github.com/schemaforge/schemaforge/migrate/sqlgen"
	"github.com/schemaforge/schemaforge/runtime/pool"
	"github.com/schemaforge/schemaforge/schema"
)

func blogSchema() *schema.Schema {
	return &schema.Schema{
		Tables: []schema.Table{
			{
				Name: "User",
				Columns: []schema.Column{
					{Name: "id", Type: connector.ScalarTypeInt, AutoIncrement: true},
					{Name: "email", Type: connector.ScalarTypeString},
					{Name: "age", Type: connector.ScalarTypeInt, Nullable: true},
				},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
				Indexes: []schema.Index{
					{Name: "User_email_key", Columns: []string{"email"}, Unique: true},
				},
			},
			{
				Name: "Post",
				Columns: []schema.Column{
					{Name: "id", Type: connector.ScalarTypeInt, AutoIncrement: true},
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
			},
		},
	}
}

func applySchema(t *testing.T, ctx context.Context, conn connector.Connector, p *Pool, from, to *schema.Schema) {
	t.Helper()
	plan, err := diff.NewDiffer(conn).Diff(from, to)
	require.NoError(t, err)

	renderer, err := sqlgen.ForConnector(conn)
	require.NoError(t, err)

	report, err := NewExecutor(conn, renderer, nil).ApplyPlan(ctx, p, plan, ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, len(report.Statements), report.Applied)
}

func introspectLive(t *testing.T, ctx context.Context, db *sql.DB, conn connector.Connector) *schema.Schema {
	t.Helper()
	intro, err := introspect.ForConnector(db, conn)
	require.NoError(t, err)
	live, err := intro.Introspect(ctx)
	require.NoError(t, err)
	return live
}

func assertColumnsMatch(t *testing.T, want, got *schema.Table) {
	t.Helper()
	require.Len(t, got.Columns, len(want.Columns))
	for i := range want.Columns {
		col := got.Column(want.Columns[i].Name)
		require.NotNil(t, col, "column %s missing", want.Columns[i].Name)
		assert.True(t, want.Columns[i].Equal(*col), "column %s differs", want.Columns[i].Name)
	}
}

// requireNothingLeftToApply re-diffs the live database against the desired
// schema and demands a plan with no SQL. Foreign key steps may still appear
// because this backend reports synthetic constraint names, but they render
// to nothing; everything else means apply and introspect disagree.
func requireNothingLeftToApply(t *testing.T, conn connector.Connector, live, desired *schema.Schema) {
	t.Helper()
	plan, err := diff.NewDiffer(conn).Diff(live, desired)
	require.NoError(t, err)
	for _, step := range plan.Steps {
		assert.Contains(t,
			[]diff.StepKind{diff.StepAddForeignKey, diff.StepDropForeignKey},
			step.Kind, step.Describe())
	}

	renderer, err := sqlgen.ForConnector(conn)
	require.NoError(t, err)
	stmts, err := plan.Render(renderer)
	require.NoError(t, err)
	assert.Empty(t, stmts)
}

// The full cycle against a real database: plan, apply, introspect, and end
// up with the schema that was asked for.
func TestSQLiteMigrationRoundTrip(t *testing.T) {
	ctx := context.Background()
	conn, err := connector.ForProvider("sqlite")
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "roundtrip.db"))
	require.NoError(t, err)

	config := pool.DefaultConfig()
	config.HealthCheckInterval = 0
	p := NewNativePool(pool.FromDB(db, config), conn, nil)
	defer p.Close()

	desired := blogSchema()
	applySchema(t, ctx, conn, p, &schema.Schema{}, desired)

	live := introspectLive(t, ctx, db, conn)
	require.Len(t, live.Tables, 2)

	user := live.Table("User")
	require.NotNil(t, user)
	assertColumnsMatch(t, desired.Table("User"), user)
	require.NotNil(t, user.PrimaryKey)
	assert.Equal(t, []string{"id"}, user.PrimaryKey.Columns)
	require.Len(t, user.Indexes, 1)
	assert.True(t, desired.Table("User").Indexes[0].Equal(user.Indexes[0]))

	post := live.Table("Post")
	require.NotNil(t, post)
	assertColumnsMatch(t, desired.Table("Post"), post)
	// The pragma reports no constraint names, so only the shape is stable.
	require.Len(t, post.ForeignKeys, 1)
	fk := post.ForeignKeys[0]
	assert.Equal(t, []string{"authorId"}, fk.Columns)
	assert.Equal(t, "User", fk.ReferencedTable)
	assert.Equal(t, []string{"id"}, fk.ReferencedColumns)
	assert.Equal(t, connector.ReferentialActionCascade, fk.OnDelete)

	requireNothingLeftToApply(t, conn, live, desired)
}

// Evolving a populated database exercises the table rebuild path: rows must
// survive the copy and untouched indexes must exist afterwards.
func TestSQLiteMigrationRoundTripAfterRebuild(t *testing.T) {
	ctx := context.Background()
	conn, err := connector.ForProvider("sqlite")
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "evolve.db"))
	require.NoError(t, err)

	config := pool.DefaultConfig()
	config.HealthCheckInterval = 0
	p := NewNativePool(pool.FromDB(db, config), conn, nil)
	defer p.Close()

	applySchema(t, ctx, conn, p, &schema.Schema{}, blogSchema())

	_, err = db.ExecContext(ctx, `INSERT INTO "User" ("id", "email", "age") VALUES (1, 'ada@example.com', 36)`)
	require.NoError(t, err)

	// Loosen email, add a column: both changes fold into one rebuild.
	evolved := blogSchema()
	evolved.Tables[0].Columns[1].Nullable = true
	evolved.Tables[0].Columns = append(evolved.Tables[0].Columns, schema.Column{
		Name: "name", Type: connector.ScalarTypeString, Nullable: true,
	})

	live := introspectLive(t, ctx, db, conn)
	applySchema(t, ctx, conn, p, live, evolved)

	var email string
	var age int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT "email", "age" FROM "User" WHERE "id" = 1`).Scan(&email, &age))
	assert.Equal(t, "ada@example.com", email)
	assert.Equal(t, 36, age)

	after := introspectLive(t, ctx, db, conn)
	user := after.Table("User")
	require.NotNil(t, user)
	assertColumnsMatch(t, evolved.Table("User"), user)
	require.Len(t, user.Indexes, 1)
	assert.Equal(t, "User_email_key", user.Indexes[0].Name)
	assert.True(t, user.Indexes[0].Unique)

	requireNothingLeftToApply(t, conn, after, evolved)
}
