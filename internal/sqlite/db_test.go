package sqlite

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates an in-memory database with the schema applied
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	for _, table := range []string{"users", "projects", "project_members", "pending_requests", "messages", "documents"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}

	// Migrations are safe to run on every start.
	require.NoError(t, db.RunMigrations())
}

func TestForeignKeysEnabled(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&enabled))
	require.Equal(t, 1, enabled)
}
