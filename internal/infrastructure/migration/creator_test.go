package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic-ledger/backend/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add entries table", "add_entries_table"},
		{"Add-Entries-Table", "add_entries_table"},
		{"ADD__ENTRIES", "add_entries"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000002_ledger.up.sql"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000002_ledger.down.sql"), nil, 0o644))

	mf, err := CreateMigration(dir, "Add entry notes", "Free text notes on entries")
	require.NoError(t, err)

	assert.Equal(t, "000003", mf.Version)
	assert.Equal(t, filepath.Join(dir, "000003_add_entry_notes.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "000003_add_entry_notes.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: Add entry notes")
	assert.Contains(t, string(up), "-- Free text notes on entries")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "-- Rollback: Add entry notes")

	require.NoError(t, CheckPairs(os.DirFS(dir)))
}

func TestCreateMigration_EmptyDirAndBadName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "init", "")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)

	_, err = CreateMigration(dir, "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000003_outbox.up.sql":    {},
		"000003_outbox.down.sql":  {},
		"000001_catalog.up.sql":   {},
		"000001_catalog.down.sql": {},
		"README.md":               {},
		"subdir.up.sql/x":         {},
	}

	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_catalog", "000003_outbox"}, names)
}

func TestCheckPairs(t *testing.T) {
	t.Run("missing down", func(t *testing.T) {
		err := CheckPairs(fstest.MapFS{"000001_a.up.sql": {}})
		assert.ErrorContains(t, err, "no down file")
	})

	t.Run("duplicate version", func(t *testing.T) {
		err := CheckPairs(fstest.MapFS{
			"000001_a.up.sql": {}, "000001_a.down.sql": {},
			"000001_b.up.sql": {}, "000001_b.down.sql": {},
		})
		assert.ErrorContains(t, err, "share version 1")
	})

	t.Run("non numeric version", func(t *testing.T) {
		err := CheckPairs(fstest.MapFS{"init.up.sql": {}, "init.down.sql": {}})
		assert.Error(t, err)
	})
}

func TestEmbeddedMigrations(t *testing.T) {
	require.NoError(t, CheckPairs(migrations.FS))

	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_catalog", "000002_ledger", "000003_outbox"}, names)

	ledgerSQL, err := migrations.FS.ReadFile("000002_ledger.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(ledgerSQL), "CREATE UNIQUE INDEX IF NOT EXISTS idx_entry_items_entry ON entry_items (entry_id)")
}
