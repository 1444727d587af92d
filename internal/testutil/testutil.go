// Package testutil provides a migrated SQLite database and row fixtures for
// package tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/librarycore/internal/database"
)

// Epoch is the fixed instant fixtures and fake clocks start from.
var Epoch = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// NewDB opens a fresh SQLite database in a temp dir and applies the schema.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.NewSQLiteConnection(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.DialectSQLite))
	return db
}

// LibraryOpts overrides library fixture defaults.
type LibraryOpts struct {
	Status         string
	LoanPeriodDays int
	MaxRenewals    int
	LateFeeRate    float64
}

// SeedLibrary inserts a library and returns its id.
func SeedLibrary(t *testing.T, db *sql.DB, opts LibraryOpts) string {
	t.Helper()
	if opts.Status == "" {
		opts.Status = "active"
	}
	if opts.LoanPeriodDays == 0 {
		opts.LoanPeriodDays = 14
	}

	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO libraries (id, name, status, loan_period_days, max_renewals, late_fee_rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, "Library "+id[:8], opts.Status, opts.LoanPeriodDays, opts.MaxRenewals, opts.LateFeeRate, Epoch, Epoch)
	require.NoError(t, err)
	return id
}

// SeedStaff inserts a live, active membership and returns its id.
func SeedStaff(t *testing.T, db *sql.DB, libraryID, actorID, role string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO staff_memberships (id, library_id, actor_id, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)`,
		id, libraryID, actorID, role, Epoch)
	require.NoError(t, err)
	return id
}

// SeedMember inserts a live member record and returns its id. actorID may be
// empty for walk-in patrons.
func SeedMember(t *testing.T, db *sql.DB, libraryID, code, actorID string) string {
	t.Helper()
	id := uuid.NewString()
	var actor any
	if actorID != "" {
		actor = actorID
	}
	_, err := db.Exec(`
		INSERT INTO member_records (id, library_id, actor_id, member_code, full_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, libraryID, actor, code, "Patron "+code, Epoch)
	require.NoError(t, err)
	return id
}

// SeedEdition inserts a catalog edition and returns its id.
func SeedEdition(t *testing.T, db *sql.DB, title string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO book_editions (id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4)`,
		id, title, Epoch, Epoch)
	require.NoError(t, err)
	return id
}

// SeedCopy inserts an active, available copy and returns its id.
func SeedCopy(t *testing.T, db *sql.DB, libraryID, editionID, barcode string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO copies (id, library_id, edition_id, barcode, status, availability_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'active', 'available', $5, $6)`,
		id, libraryID, editionID, barcode, Epoch, Epoch)
	require.NoError(t, err)
	return id
}

// Exec runs a raw statement, failing the test on error.
func Exec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	_, err := db.Exec(query, args...)
	require.NoError(t, err)
}

// Count returns SELECT COUNT(*) for the given query tail.
func Count(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) "+query, args...).Scan(&n))
	return n
}
