package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewSQLiteConnection(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db, DialectSQLite))
	return db
}

func seedLibrary(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO libraries (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`, id, "Central", now, now)
	require.NoError(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := tempDB(t)
	assert.NoError(t, Migrate(context.Background(), db, DialectSQLite))
}

func TestMigrateUnknownDialect(t *testing.T) {
	db := tempDB(t)
	assert.Error(t, Migrate(context.Background(), db, Dialect("oracle")))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, _, err := Open("mysql", "")
	assert.Error(t, err)
}

func TestHardDeleteRejected(t *testing.T) {
	db := tempDB(t)
	seedLibrary(t, db, "lib-1")
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO staff_memberships (id, library_id, actor_id, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
		"staff-1", "lib-1", "actor-1", "owner", now)
	require.NoError(t, err)

	_, err = db.Exec(`DELETE FROM staff_memberships WHERE id = $1`, "staff-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hard delete is not permitted")
}

func TestUniqueViolationDetected(t *testing.T) {
	db := tempDB(t)
	seedLibrary(t, db, "lib-1")
	now := time.Now().UTC()
	insert := `INSERT INTO member_records (id, library_id, member_code, full_name, created_at) VALUES ($1, $2, $3, $4, $5)`

	_, err := db.Exec(insert, "m-1", "lib-1", "A-1", "Ada", now)
	require.NoError(t, err)
	_, err = db.Exec(insert, "m-2", "lib-1", "A-1", "Grace", now)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.True(t, IsUniqueViolation(fmt.Errorf("wrapped: %w", err)))

	// Tombstoned rows leave the uniqueness scope.
	_, err = db.Exec(`UPDATE member_records SET is_deleted = TRUE WHERE id = $1`, "m-1")
	require.NoError(t, err)
	_, err = db.Exec(insert, "m-2", "lib-1", "A-1", "Grace", now)
	assert.NoError(t, err)
}

func TestIsUniqueViolationPostgresCode(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	sentinel := errors.New("abort")

	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `INSERT INTO libraries (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`, "lib-x", "X", now, now); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM libraries`).Scan(&count))
	assert.Zero(t, count)
}
