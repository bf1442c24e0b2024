package database

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := "INSERT INTO t (a, b, c) VALUES (?, ?, '?')"
	assert.Equal(t, "INSERT INTO t (a, b, c) VALUES ($1, $2, '?')", Rebind("postgres", q))
	assert.Equal(t, q, Rebind("mysql", q))
	assert.Equal(t, q, Rebind("snowflake", q))
}

func TestMigrationsEmbedded(t *testing.T) {
	for _, dbType := range []string{"postgres", "mysql", "snowflake"} {
		entries, err := fs.ReadDir(migrationFS, "migrations/"+dbType)
		require.NoError(t, err, dbType)
		// up/down の組が 3 バージョン分
		assert.Len(t, entries, 6, dbType)
	}
}
