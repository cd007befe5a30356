package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCommands(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", filepath.Join(t.TempDir(), "toolshed.db"))

	run := func(args ...string) string {
		var out bytes.Buffer
		app := newApp()
		app.Writer = &out
		require.NoError(t, app.Run(append([]string{"toolshed"}, args...)))
		return out.String()
	}

	assert.Equal(t, "applied 3 migration(s)\n", run("migrate", "up"))
	assert.Equal(t, "sqlite schema version 3\n", run("migrate", "version"))
	assert.Equal(t, "rolled back 1 migration\n", run("migrate", "down"))
	assert.Equal(t, "sqlite schema version 2\n", run("migrate", "version"))
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolshed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: sqlite\n"), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := loadConfig("")
	assert.ErrorContains(t, err, "invalid configuration")
}
