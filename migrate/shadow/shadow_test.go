package shadow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaforge/schemaforge/connector"
)

func TestDeriveURL(t *testing.T) {
	pg, err := connector.ForProvider("postgresql")
	require.NoError(t, err)
	lite, err := connector.ForProvider("sqlite")
	require.NoError(t, err)

	t.Run("postgres database name is suffixed", func(t *testing.T) {
		got := DeriveURL(pg, "postgres://app@localhost:5432/blog")
		assert.Equal(t, "postgres://app@localhost:5432/blog_shadow", got)
	})

	t.Run("query parameters stay behind the name", func(t *testing.T) {
		got := DeriveURL(pg, "postgres://app@localhost/blog?sslmode=disable")
		assert.Equal(t, "postgres://app@localhost/blog_shadow?sslmode=disable", got)
	})

	t.Run("sqlite file path is suffixed", func(t *testing.T) {
		got := DeriveURL(lite, "file:app.db")
		assert.Equal(t, "file:app_shadow.db", got)
	})

	t.Run("sqlite path without extension", func(t *testing.T) {
		got := DeriveURL(lite, "file:appdata")
		assert.Equal(t, "file:appdata_shadow.db", got)
	})
}
