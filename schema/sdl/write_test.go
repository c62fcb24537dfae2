package sdl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/schema"
)

func TestFormatRoundTrip(t *testing.T) {
	original, err := Parse("blog.sdl", blogDefinition)
	require.NoError(t, err)

	text := Format(original)
	reparsed, err := Parse("roundtrip.sdl", text)
	require.NoError(t, err)

	require.NotNil(t, reparsed.Datasource)
	assert.Equal(t, original.Datasource.Provider, reparsed.Datasource.Provider)

	require.Len(t, reparsed.Enums, len(original.Enums))
	for i, e := range original.Enums {
		assert.Equal(t, e.Name, reparsed.Enums[i].Name)
		assert.Equal(t, e.Values, reparsed.Enums[i].Values)
	}

	require.Len(t, reparsed.Tables, len(original.Tables))
	for i := range original.Tables {
		want := &original.Tables[i]
		got := &reparsed.Tables[i]
		assert.Equal(t, want.Name, got.Name)

		require.Len(t, got.Columns, len(want.Columns))
		for j := range want.Columns {
			assert.True(t, want.Columns[j].Equal(got.Columns[j]),
				"column %s.%s does not round-trip", want.Name, want.Columns[j].Name)
		}

		require.Len(t, got.Indexes, len(want.Indexes))
		for j := range want.Indexes {
			assert.True(t, want.Indexes[j].Equal(got.Indexes[j]),
				"index %s does not round-trip", want.Indexes[j].Name)
		}

		require.Len(t, got.ForeignKeys, len(want.ForeignKeys))
		for j := range want.ForeignKeys {
			assert.True(t, want.ForeignKeys[j].Equal(got.ForeignKeys[j]),
				"foreign key %s does not round-trip", want.ForeignKeys[j].ConstraintName)
		}

		if want.PrimaryKey == nil {
			assert.Nil(t, got.PrimaryKey)
		} else {
			require.NotNil(t, got.PrimaryKey)
			assert.Equal(t, want.PrimaryKey.Columns, got.PrimaryKey.Columns)
		}
	}
}

func TestFormatCompoundConstraints(t *testing.T) {
	s := &schema.Schema{
		Datasource: &schema.Datasource{Name: "db", Provider: "postgresql"},
		Tables: []schema.Table{{
			Name: "Membership",
			Columns: []schema.Column{
				{Name: "userId", Type: connector.ScalarTypeInt},
				{Name: "teamId", Type: connector.ScalarTypeInt},
			},
			PrimaryKey: &schema.PrimaryKey{Name: "Membership_pk", Columns: []string{"userId", "teamId"}},
			Indexes: []schema.Index{{
				Name:      "Membership_teamId_idx",
				Columns:   []string{"teamId"},
				Algorithm: connector.IndexAlgorithmHash,
			}},
		}},
	}

	text := Format(s)
	assert.Contains(t, text, `@@id([userId, teamId], name: "Membership_pk")`)
	assert.Contains(t, text, "type: Hash")

	reparsed, err := Parse("compound.sdl", text)
	require.NoError(t, err)
	table := reparsed.Table("Membership")
	require.NotNil(t, table)
	require.NotNil(t, table.PrimaryKey)
	assert.Equal(t, "Membership_pk", table.PrimaryKey.Name)
	assert.Equal(t, []string{"userId", "teamId"}, table.PrimaryKey.Columns)
	require.Len(t, table.Indexes, 1)
	assert.Equal(t, connector.IndexAlgorithmHash, table.Indexes[0].Algorithm)
}
