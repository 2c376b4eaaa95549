package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useStorage(t *testing.T, driver, path string) {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", driver)
	t.Setenv("STORAGE_PATH", path)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_OUTPUT", "stderr")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestListCreateDeleteReset_FileDriver(t *testing.T) {
	useStorage(t, "file", t.TempDir())

	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome")
	assert.Contains(t, out, "Minimalism")

	out, err = run(t, "create")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "Created note "))
	id := strings.TrimSpace(strings.TrimPrefix(out, "Created note "))

	out, err = run(t, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], id))
	assert.Contains(t, lines[0], "Untitled")

	out, err = run(t, "list", "minimal")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(out), "\n")+1)
	assert.Contains(t, out, "Minimalism")

	_, err = run(t, "delete", id)
	require.NoError(t, err)
	_, err = run(t, "delete", "1")
	require.NoError(t, err)
	_, err = run(t, "delete", "2")
	require.NoError(t, err)

	out, err = run(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "No notes found\n", out)

	_, err = run(t, "reset")
	require.NoError(t, err)

	out, err = run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome")
}

func TestDelete_RequiresID(t *testing.T) {
	useStorage(t, "memory", "")

	_, err := run(t, "delete")
	assert.Error(t, err)
}

func TestMigrate_SQLite(t *testing.T) {
	useStorage(t, "sqlite", filepath.Join(t.TempDir(), "notes.db"))

	out, err := run(t, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "No migrations applied")

	out, err = run(t, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "Migration up completed successfully")

	out, err = run(t, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "No migrations to run")

	out, err = run(t, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Current migration version: 1")
	assert.Contains(t, out, "Dirty: false")

	out, err = run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome")

	out, err = run(t, "migrate", "down")
	require.NoError(t, err)
	assert.Contains(t, out, "Migration down completed successfully")
}

func TestMigrate_RejectsKeyValueOnlyDrivers(t *testing.T) {
	useStorage(t, "file", t.TempDir())

	_, err := run(t, "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no migrations")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Notes dev")
	assert.Contains(t, out, "Git Commit:")
}
