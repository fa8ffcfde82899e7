// Package db tests for database migration management.
package db

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRaw(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestInitialize verifies schema_migrations table creation.
func TestInitialize(t *testing.T) {
	db := openRaw(t)
	m := NewMigrator(db, fstest.MapFS{})

	require.NoError(t, m.Initialize())
	require.NoError(t, m.Initialize(), "Initialize() must be repeatable")

	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='schema_migrations'").Scan(&tableName)
	assert.NoError(t, err)
}

// TestCurrentVersion verifies version tracking.
func TestCurrentVersion(t *testing.T) {
	db := openRaw(t)
	m := NewMigrator(db, fstest.MapFS{})

	_, err := m.CurrentVersion()
	assert.Error(t, err, "CurrentVersion() should fail before Initialize()")

	require.NoError(t, m.Initialize())
	version, err := m.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 0, version)

	_, err = db.Exec("INSERT INTO schema_migrations (version, applied_at, description, checksum) VALUES (?, ?, ?, ?)",
		1, 123456, "initial", strings.Repeat("a", 64))
	require.NoError(t, err)

	version, err = m.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

// TestUp_appliesInOrder verifies files apply by version and are recorded once.
func TestUp_appliesInOrder(t *testing.T) {
	db := openRaw(t)
	fsys := fstest.MapFS{
		"V2__add_note.up.sql":   {Data: []byte(`ALTER TABLE t ADD COLUMN note TEXT;`)},
		"V1__create_t.up.sql":   {Data: []byte(`CREATE TABLE t (id INTEGER PRIMARY KEY);`)},
		"V1__create_t.down.sql": {Data: []byte(`DROP TABLE t;`)},
		"README.md":             {Data: []byte(`ignored`)},
		"Vx__bad.up.sql":        {Data: []byte(`ignored`)},
	}
	m := NewMigrator(db, fsys)
	require.NoError(t, m.Initialize())

	require.NoError(t, m.Up())
	require.NoError(t, m.Up(), "second Up() should be a no-op")

	applied, err := m.GetAppliedMigrations()
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, 1, applied[0].Version)
	assert.Equal(t, "create_t", applied[0].Description)
	assert.Len(t, applied[0].Checksum, 64)
	assert.Equal(t, "add_note", applied[1].Description)

	_, err = db.Exec("INSERT INTO t (id, note) VALUES (1, 'x')")
	assert.NoError(t, err)
}

// TestUp_checksumMismatch verifies an edited, already-applied file is rejected.
func TestUp_checksumMismatch(t *testing.T) {
	db := openRaw(t)
	fsys := fstest.MapFS{
		"V1__create_t.up.sql": {Data: []byte(`CREATE TABLE t (id INTEGER PRIMARY KEY);`)},
	}
	m := NewMigrator(db, fsys)
	require.NoError(t, m.Initialize())
	require.NoError(t, m.Up())

	fsys["V1__create_t.up.sql"] = &fstest.MapFile{Data: []byte(`CREATE TABLE t (id TEXT);`)}
	err := m.Up()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modified")
}

// TestDown verifies rollback of the latest migration.
func TestDown(t *testing.T) {
	db := openRaw(t)
	m := NewMigrator(db, Migrations())
	require.NoError(t, m.Initialize())

	err := m.Down()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no migrations to rollback")

	require.NoError(t, m.Up())
	version, err := m.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	require.NoError(t, m.Down())
	require.NoError(t, m.Down())

	version, err = m.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 0, version)

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='kv_store'").Scan(&name)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

// TestDown_missingFile verifies an error when no down file exists.
func TestDown_missingFile(t *testing.T) {
	db := openRaw(t)
	m := NewMigrator(db, fstest.MapFS{
		"V1__create_t.up.sql": {Data: []byte(`CREATE TABLE t (id INTEGER PRIMARY KEY);`)},
	})
	require.NoError(t, m.Initialize())
	require.NoError(t, m.Up())

	err := m.Down()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rollback migration found")
}
