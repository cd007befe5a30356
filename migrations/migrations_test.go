package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestFSUnknownDriver(t *testing.T) {
	_, err := FS("mysql")
	assert.Error(t, err)
}

func TestSQLiteUpAndDown(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	applied, err := Up(ctx, db, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, 3, applied)

	version, err := Version(ctx, db, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)

	applied, err = Up(ctx, db, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	require.NoError(t, Down(ctx, db, "sqlite"))
	version, err = Version(ctx, db, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'oauth_accounts'`).Scan(&name)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
