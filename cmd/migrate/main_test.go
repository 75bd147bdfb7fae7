package main

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)

	assert.Contains(t, names, "migrations/000001_create_catalog_entries.up.sql")
	assert.Contains(t, names, "migrations/000001_create_catalog_entries.down.sql")
	assert.Zero(t, len(names)%2, "every up migration has a down")
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"up", "down", "steps", "force", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestStepsRejectsZero(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"steps", "0", "--dsn", "postgres://localhost/none"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-zero")
}
