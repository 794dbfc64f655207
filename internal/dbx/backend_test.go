package dbx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackend(t *testing.T) {
	for _, in := range []string{"postgres", "PostgreSQL", " pgx "} {
		b, err := ParseBackend(in)
		require.NoError(t, err, in)
		assert.Equal(t, Postgres, b)
	}
	for _, in := range []string{"sqlite", "SQLite3"} {
		b, err := ParseBackend(in)
		require.NoError(t, err, in)
		assert.Equal(t, SQLite, b)
	}

	_, err := ParseBackend("sqlserver")
	require.Error(t, err)
}

func TestBackend_DriverAndDialect(t *testing.T) {
	assert.Equal(t, "pgx", Postgres.DriverName())
	assert.Equal(t, "pgx", Postgres.GooseDialect())

	assert.Equal(t, "sqlite", SQLite.DriverName())
	assert.Equal(t, "sqlite3", SQLite.GooseDialect())
}
