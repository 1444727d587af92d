package staff

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fkhayef/librarycore/internal/authz"
	"github.com/fkhayef/librarycore/internal/database"
)

// Repository handles staff membership persistence. There is deliberately no
// delete method: removal goes through the soft-delete manager.
type Repository struct {
	db database.Querier
}

// NewRepository creates a new staff repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

const columns = `id, library_id, actor_id, role, is_active, created_at, is_deleted, deleted_at, deleted_by`

func scan(row interface{ Scan(...any) error }, m *StaffMembership) error {
	return row.Scan(
		&m.ID,
		&m.LibraryID,
		&m.ActorID,
		&m.Role,
		&m.IsActive,
		&m.CreatedAt,
		&m.IsDeleted,
		&m.DeletedAt,
		&m.DeletedBy,
	)
}

// Create inserts a new membership
func (r *Repository) Create(ctx context.Context, m *StaffMembership) error {
	query := `
		INSERT INTO staff_memberships (id, library_id, actor_id, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.db.ExecContext(ctx, query, m.ID, m.LibraryID, m.ActorID, m.Role, m.IsActive, m.CreatedAt); err != nil {
		return fmt.Errorf("failed to create staff membership: %w", err)
	}
	return nil
}

// GetByID retrieves a live membership within a library
func (r *Repository) GetByID(ctx context.Context, libraryID, id string) (*StaffMembership, error) {
	query := `
		SELECT ` + columns + `
		FROM staff_memberships
		WHERE library_id = $1 AND id = $2 AND is_deleted = FALSE
	`

	m := &StaffMembership{}
	if err := scan(r.db.QueryRowContext(ctx, query, libraryID, id), m); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get staff membership: %w", err)
	}
	return m, nil
}

// FindByActor retrieves the actor's live membership in a library
func (r *Repository) FindByActor(ctx context.Context, libraryID, actorID string) (*StaffMembership, error) {
	query := `
		SELECT ` + columns + `
		FROM staff_memberships
		WHERE library_id = $1 AND actor_id = $2 AND is_deleted = FALSE
	`

	m := &StaffMembership{}
	if err := scan(r.db.QueryRowContext(ctx, query, libraryID, actorID), m); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find staff membership: %w", err)
	}
	return m, nil
}

// List retrieves the live memberships of a library
func (r *Repository) List(ctx context.Context, libraryID string) ([]*StaffMembership, error) {
	query := `
		SELECT ` + columns + `
		FROM staff_memberships
		WHERE library_id = $1 AND is_deleted = FALSE
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, libraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	defer rows.Close()

	var memberships []*StaffMembership
	for rows.Next() {
		m := &StaffMembership{}
		if err := scan(rows, m); err != nil {
			return nil, fmt.Errorf("failed to scan staff membership: %w", err)
		}
		memberships = append(memberships, m)
	}

	return memberships, rows.Err()
}

// UpdateRole changes a live membership's role
func (r *Repository) UpdateRole(ctx context.Context, libraryID, id string, role authz.Role) (*StaffMembership, error) {
	query := `
		UPDATE staff_memberships
		SET role = $1
		WHERE library_id = $2 AND id = $3 AND is_deleted = FALSE
	`

	return r.updateAndGet(ctx, query, libraryID, id, role)
}

// SetActive suspends or reactivates a live membership
func (r *Repository) SetActive(ctx context.Context, libraryID, id string, active bool) (*StaffMembership, error) {
	query := `
		UPDATE staff_memberships
		SET is_active = $1
		WHERE library_id = $2 AND id = $3 AND is_deleted = FALSE
	`

	return r.updateAndGet(ctx, query, libraryID, id, active)
}

func (r *Repository) updateAndGet(ctx context.Context, query, libraryID, id string, value any) (*StaffMembership, error) {
	result, err := r.db.ExecContext(ctx, query, value, libraryID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update staff membership: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, libraryID, id)
}

// CountActiveOwners counts live, active owners of a library
func (r *Repository) CountActiveOwners(ctx context.Context, libraryID string) (int, error) {
	var n int
	query := `
		SELECT COUNT(*) FROM staff_memberships
		WHERE library_id = $1 AND role = 'owner' AND is_active = TRUE AND is_deleted = FALSE
	`
	if err := r.db.QueryRowContext(ctx, query, libraryID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count owners: %w", err)
	}
	return n, nil
}
