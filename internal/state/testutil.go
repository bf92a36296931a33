package state

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestStore creates a Store over an in-memory SQLite database with the
// schema in place. The database is closed by t.Cleanup.
func NewTestStore(t testing.TB) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every pooled connection would get its own empty :memory: database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, CreateSchema(db))

	return NewStore(db)
}
