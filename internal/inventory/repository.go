package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fkhayef/librarycore/internal/database"
)

// Repository handles copy persistence. Availability columns are written
// only by the circulation state machine through MarkBorrowed, MarkAvailable
// and ExtendDue.
type Repository struct {
	db database.Querier
}

// NewRepository creates a new inventory repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

const columns = `id, library_id, edition_id, barcode, status, availability_status, current_borrower, due_date,
	created_at, updated_at, is_deleted, deleted_at, deleted_by`

func scan(row interface{ Scan(...any) error }, c *Copy) error {
	return row.Scan(
		&c.ID,
		&c.LibraryID,
		&c.EditionID,
		&c.Barcode,
		&c.Status,
		&c.Availability.Status,
		&c.Availability.CurrentBorrower,
		&c.Availability.DueDate,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.IsDeleted,
		&c.DeletedAt,
		&c.DeletedBy,
	)
}

// Create inserts a new copy
func (r *Repository) Create(ctx context.Context, c *Copy) error {
	query := `
		INSERT INTO copies (id, library_id, edition_id, barcode, status, availability_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.LibraryID, c.EditionID, c.Barcode, c.Status, c.Availability.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create copy: %w", err)
	}
	return nil
}

// GetByID retrieves a live copy within a library
func (r *Repository) GetByID(ctx context.Context, libraryID, id string) (*Copy, error) {
	query := `
		SELECT ` + columns + `
		FROM copies
		WHERE library_id = $1 AND id = $2 AND is_deleted = FALSE
	`

	c := &Copy{}
	if err := scan(r.db.QueryRowContext(ctx, query, libraryID, id), c); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get copy: %w", err)
	}
	return c, nil
}

// Exists reports whether a copy row exists in the library, tombstoned or not
func (r *Repository) Exists(ctx context.Context, libraryID, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM copies WHERE library_id = $1 AND id = $2`, libraryID, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check copy: %w", err)
	}
	return n > 0, nil
}

// List retrieves the live copies of a library, optionally filtered by
// availability
func (r *Repository) List(ctx context.Context, libraryID string, availability Availability) ([]*Copy, error) {
	query := `
		SELECT ` + columns + `
		FROM copies
		WHERE library_id = $1 AND is_deleted = FALSE
	`
	args := []any{libraryID}
	if availability != "" {
		query += ` AND availability_status = $2`
		args = append(args, availability)
	}
	query += ` ORDER BY barcode`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list copies: %w", err)
	}
	defer rows.Close()

	var copies []*Copy
	for rows.Next() {
		c := &Copy{}
		if err := scan(rows, c); err != nil {
			return nil, fmt.Errorf("failed to scan copy: %w", err)
		}
		copies = append(copies, c)
	}

	return copies, rows.Err()
}

// SetStatus writes the administrative status of a live copy
func (r *Repository) SetStatus(ctx context.Context, libraryID, id string, status Status, now time.Time) error {
	query := `
		UPDATE copies
		SET status = $1, updated_at = $2
		WHERE library_id = $3 AND id = $4 AND is_deleted = FALSE
	`

	if _, err := r.db.ExecContext(ctx, query, status, now, libraryID, id); err != nil {
		return fmt.Errorf("failed to update copy status: %w", err)
	}
	return nil
}

// MarkBorrowed flips an eligible copy to borrowed in one conditional write.
// It reports false when the copy was not live, active and available at the
// moment of the write.
func (r *Repository) MarkBorrowed(ctx context.Context, libraryID, id, memberID string, due, now time.Time) (bool, error) {
	query := `
		UPDATE copies
		SET availability_status = 'borrowed', current_borrower = $1, due_date = $2, updated_at = $3
		WHERE library_id = $4 AND id = $5
			AND availability_status = 'available' AND status = 'active' AND is_deleted = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, memberID, due, now, libraryID, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark copy borrowed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// MarkAvailable releases a copy and clears its borrower and due date
func (r *Repository) MarkAvailable(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE copies
		SET availability_status = 'available', current_borrower = NULL, due_date = NULL, updated_at = $1
		WHERE id = $2
	`

	if _, err := r.db.ExecContext(ctx, query, now, id); err != nil {
		return fmt.Errorf("failed to mark copy available: %w", err)
	}
	return nil
}

// ExtendDue moves the due date of a borrowed copy
func (r *Repository) ExtendDue(ctx context.Context, id string, due, now time.Time) error {
	query := `
		UPDATE copies
		SET due_date = $1, updated_at = $2
		WHERE id = $3 AND availability_status = 'borrowed'
	`

	if _, err := r.db.ExecContext(ctx, query, due, now, id); err != nil {
		return fmt.Errorf("failed to extend copy due date: %w", err)
	}
	return nil
}
