package sqlitefixtures

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // driver registration
)

const driverName = "sqlite"

var schemaStatements = []string{
	`CREATE TABLE jv_commit (
		commit_pk           INTEGER PRIMARY KEY AUTOINCREMENT,
		author              TEXT,
		commit_date         TEXT,
		commit_date_instant TEXT,
		commit_id           REAL
	)`,
	`CREATE TABLE jv_commit_property (
		commit_fk      INTEGER NOT NULL REFERENCES jv_commit (commit_pk),
		property_name  TEXT NOT NULL,
		property_value TEXT,
		PRIMARY KEY (commit_fk, property_name)
	)`,
	`CREATE TABLE jv_global_id (
		global_id_pk INTEGER PRIMARY KEY AUTOINCREMENT,
		local_id     TEXT,
		fragment     TEXT,
		type_name    TEXT,
		owner_id_fk  INTEGER REFERENCES jv_global_id (global_id_pk)
	)`,
	`CREATE TABLE jv_snapshot (
		snapshot_pk        INTEGER PRIMARY KEY AUTOINCREMENT,
		type               TEXT,
		version            INTEGER,
		state              TEXT,
		changed_properties TEXT,
		managed_type       TEXT,
		global_id_fk       INTEGER REFERENCES jv_global_id (global_id_pk),
		commit_fk          INTEGER REFERENCES jv_commit (commit_pk)
	)`,
	`CREATE INDEX jv_snapshot_global_id_fk_idx ON jv_snapshot (global_id_fk)`,
	`CREATE INDEX jv_snapshot_commit_fk_idx ON jv_snapshot (commit_fk)`,
}

// NewInMemoryDB opens a private in-memory SQLite database with the audit tables and closes it on test cleanup.
// The pool is limited to one connection because every connection would otherwise see its own empty database.
func NewInMemoryDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open(driverName, ":memory:")
	require.NoError(t, err)

	db.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, CreateSchema(context.Background(), db))

	return db
}

// CreateSchema creates the audit tables with their default names.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, statement := range schemaStatements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return err
		}
	}

	return nil
}
