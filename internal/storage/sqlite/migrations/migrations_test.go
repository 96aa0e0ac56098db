package migrations_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/slok/tierd/internal/storage/sqlite/migrations"
)

func TestMigrator(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(err)
	defer db.Close()

	m, err := migrations.NewMigrator(migrations.MigratorConfig{DB: db})
	require.NoError(err)

	v, err := m.Version(ctx)
	require.NoError(err)
	assert.Equal(uint(0), v)

	v, err = m.Up(ctx)
	require.NoError(err)
	assert.Equal(uint(3), v)

	// Running again is a no-op.
	v, err = m.Up(ctx)
	require.NoError(err)
	assert.Equal(uint(3), v)

	for _, table := range []string{"tasks", "packages", "package_releases", "stable_promotion_requests", "os_releases", "move_journal"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(err, "table %s should exist", table)
	}

	require.NoError(m.Down(ctx))
	v, err = m.Version(ctx)
	require.NoError(err)
	assert.Equal(uint(0), v)
}

func TestNewMigratorRequiresDB(t *testing.T) {
	_, err := migrations.NewMigrator(migrations.MigratorConfig{})
	assert.Error(t, err)
}
