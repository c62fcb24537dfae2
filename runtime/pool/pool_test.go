package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, 25, config.MaxOpenConns)
	assert.Equal(t, 5, config.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, config.ConnMaxLifetime)
}

func TestDriverName(t *testing.T) {
	for provider, driver := range map[string]string{
		"postgresql":  "postgres",
		"postgres":    "postgres",
		"cockroachdb": "postgres",
		"mysql":       "mysql",
		"sqlite":      "sqlite3",
	} {
		got, err := DriverName(provider)
		require.NoError(t, err, provider)
		assert.Equal(t, driver, got)
	}

	_, err := DriverName("oracle")
	require.Error(t, err)
}

func TestOpenUnknownProvider(t *testing.T) {
	_, err := Open("oracle", "oracle://localhost", DefaultConfig())
	require.Error(t, err)
}
