package history

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/schema"
)

func managerFor(t *testing.T, provider string) *Manager {
	t.Helper()
	conn, err := connector.ForProvider(provider)
	require.NoError(t, err)
	return NewManager(nil, conn)
}

func TestChecksumIsStable(t *testing.T) {
	first := Checksum("CREATE TABLE \"User\" (id SERIAL)")
	second := Checksum("CREATE TABLE \"User\" (id SERIAL)")
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	assert.NotEqual(t, first, Checksum("CREATE TABLE \"Post\" (id SERIAL)"))
}

func TestCreateTableSQLPerBackend(t *testing.T) {
	pg, err := managerFor(t, "postgresql").createTableSQL()
	require.NoError(t, err)
	assert.Contains(t, pg, "CREATE TABLE IF NOT EXISTS "+TableName)
	assert.Contains(t, pg, "SERIAL PRIMARY KEY")

	my, err := managerFor(t, "mysql").createTableSQL()
	require.NoError(t, err)
	assert.Contains(t, my, "AUTO_INCREMENT")
	assert.Contains(t, my, "TINYINT(1)")

	lite, err := managerFor(t, "sqlite").createTableSQL()
	require.NoError(t, err)
	assert.Contains(t, lite, "INTEGER PRIMARY KEY AUTOINCREMENT")

	ms, err := managerFor(t, "sqlserver").createTableSQL()
	require.NoError(t, err)
	assert.Contains(t, ms, "IDENTITY(1,1)")
	assert.True(t, strings.HasPrefix(ms, "IF OBJECT_ID"))
}

func TestPlaceholderStyles(t *testing.T) {
	assert.Equal(t, "$2", managerFor(t, "postgresql").placeholder(2))
	assert.Equal(t, "$2", managerFor(t, "cockroachdb").placeholder(2))
	assert.Equal(t, "?", managerFor(t, "mysql").placeholder(2))
	assert.Equal(t, "?", managerFor(t, "sqlite").placeholder(2))
	assert.Equal(t, "@p2", managerFor(t, "sqlserver").placeholder(2))
}

func TestBoolLiterals(t *testing.T) {
	assert.Equal(t, "TRUE", managerFor(t, "postgresql").boolLiteral(true))
	assert.Equal(t, "FALSE", managerFor(t, "postgresql").boolLiteral(false))
	assert.Equal(t, "1", managerFor(t, "mysql").boolLiteral(true))
	assert.Equal(t, "0", managerFor(t, "sqlite").boolLiteral(false))
}

func TestSnapshotRoundTrip(t *testing.T) {
	original := &schema.Schema{
		Tables: []schema.Table{
			{
				Name: "User",
				Columns: []schema.Column{
					{Name: "id", Type: connector.ScalarTypeInt, AutoIncrement: true},
					{Name: "email", Type: connector.ScalarTypeString},
				},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
			},
		},
		Enums: []schema.Enum{{Name: "Role", Values: []string{"ADMIN", "USER"}}},
	}

	encoded, err := SerializeSnapshot(original)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := DeserializeSnapshot(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	require.Len(t, decoded.Tables, 1)
	assert.Equal(t, "User", decoded.Tables[0].Name)
	assert.True(t, decoded.Tables[0].Columns[0].AutoIncrement)
	assert.Equal(t, []string{"ADMIN", "USER"}, decoded.Enums[0].Values)
}

func TestSnapshotNilAndEmpty(t *testing.T) {
	encoded, err := SerializeSnapshot(nil)
	require.NoError(t, err)
	assert.Empty(t, encoded)

	decoded, err := DeserializeSnapshot("")
	require.NoError(t, err)
	assert.Nil(t, decoded)

	_, err = DeserializeSnapshot("{not json")
	assert.Error(t, err)
}
