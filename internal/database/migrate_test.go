package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUpMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_sales.up.sql":     {Data: []byte("SELECT 1")},
		"migrations/0001_catalog.up.sql":   {Data: []byte("SELECT 1")},
		"migrations/0001_catalog.down.sql": {Data: []byte("SELECT 1")},
		"migrations/README":                {Data: []byte("notes")},
	}

	got, err := listUpMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_catalog.up.sql", "0002_sales.up.sql"}, got)
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	got, err := listUpMigrations(migrationFiles)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"0001_catalog.up.sql",
		"0002_sales.up.sql",
		"0003_suppliers.up.sql",
	}, got)
}
