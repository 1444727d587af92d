package softdelete

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fkhayef/librarycore/internal/database"
)

// table describes how a collection is stored. guard is a column the
// collection's deleter rule inspects.
type table struct {
	name  string
	label string
	guard string
}

var tables = map[Collection]table{
	CollectionStaff:   {name: "staff_memberships", label: "actor_id || ' (' || role || ')'", guard: "role"},
	CollectionMembers: {name: "member_records", label: "member_code || ' ' || full_name", guard: "member_code"},
	CollectionCopies:  {name: "copies", label: "barcode", guard: "availability_status"},
}

// Valid reports whether c names a soft-deletable collection
func (c Collection) Valid() bool {
	_, ok := tables[c]
	return ok
}

// row is a record plus its guard column value
type row struct {
	Record
	guard string
}

// Repository writes and clears tombstones. It is the only code that touches
// the tombstone columns.
type Repository struct {
	db database.Querier
}

// NewRepository creates a new soft-delete repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

func selectFrom(t table) string {
	return `SELECT id, library_id, ` + t.label + `, ` + t.guard + `, is_deleted, deleted_at, deleted_by FROM ` + t.name
}

func scanRow(s interface{ Scan(...any) error }, c Collection) (*row, error) {
	rw := &row{Record: Record{Collection: c}}
	err := s.Scan(
		&rw.ID,
		&rw.LibraryID,
		&rw.Label,
		&rw.guard,
		&rw.IsDeleted,
		&rw.DeletedAt,
		&rw.DeletedBy,
	)
	return rw, err
}

// find returns the row in the library with the given tombstone state
func (r *Repository) find(ctx context.Context, c Collection, libraryID, id string, deleted bool) (*row, error) {
	t := tables[c]
	query := selectFrom(t) + ` WHERE library_id = $1 AND id = $2 AND is_deleted = $3`

	rw, err := scanRow(r.db.QueryRowContext(ctx, query, libraryID, id, deleted), c)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s row: %w", c, err)
	}
	return rw, nil
}

// tombstone marks a live row deleted, reporting false if it was not live
func (r *Repository) tombstone(ctx context.Context, c Collection, libraryID, id, deletedBy string, now time.Time) (bool, error) {
	query := `
		UPDATE ` + tables[c].name + `
		SET is_deleted = TRUE, deleted_at = $1, deleted_by = $2
		WHERE library_id = $3 AND id = $4 AND is_deleted = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, now, deletedBy, libraryID, id)
	if err != nil {
		return false, fmt.Errorf("failed to tombstone %s row: %w", c, err)
	}
	return affectedOne(result)
}

// restore clears the tombstone of a deleted row, reporting false if it was
// not tombstoned
func (r *Repository) restore(ctx context.Context, c Collection, libraryID, id string) (bool, error) {
	query := `
		UPDATE ` + tables[c].name + `
		SET is_deleted = FALSE, deleted_at = NULL, deleted_by = NULL
		WHERE library_id = $1 AND id = $2 AND is_deleted = TRUE
	`

	result, err := r.db.ExecContext(ctx, query, libraryID, id)
	if err != nil {
		return false, fmt.Errorf("failed to restore %s row: %w", c, err)
	}
	return affectedOne(result)
}

// ListDeleted returns the tombstoned rows of a collection, newest first
func (r *Repository) ListDeleted(ctx context.Context, c Collection, libraryID string) ([]*Record, error) {
	query := selectFrom(tables[c]) + ` WHERE library_id = $1 AND is_deleted = TRUE ORDER BY deleted_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, libraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deleted %s: %w", c, err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		rw, err := scanRow(rows, c)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deleted %s row: %w", c, err)
		}
		records = append(records, &rw.Record)
	}

	return records, rows.Err()
}

// countActiveOwners counts live, active owners other than excludeID
func (r *Repository) countActiveOwners(ctx context.Context, libraryID, excludeID string) (int, error) {
	var n int
	query := `
		SELECT COUNT(*) FROM staff_memberships
		WHERE library_id = $1 AND id <> $2 AND role = 'owner' AND is_active = TRUE AND is_deleted = FALSE
	`
	if err := r.db.QueryRowContext(ctx, query, libraryID, excludeID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count owners: %w", err)
	}
	return n, nil
}

func affectedOne(result sql.Result) (bool, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}
