package member

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fkhayef/librarycore/internal/database"
)

// Repository handles member record persistence. Removal goes through the
// soft-delete manager.
type Repository struct {
	db database.Querier
}

// NewRepository creates a new member repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

const columns = `id, library_id, actor_id, member_code, full_name, email, created_at, is_deleted, deleted_at, deleted_by`

func scan(row interface{ Scan(...any) error }, m *MemberRecord) error {
	return row.Scan(
		&m.ID,
		&m.LibraryID,
		&m.ActorID,
		&m.MemberCode,
		&m.FullName,
		&m.Email,
		&m.CreatedAt,
		&m.IsDeleted,
		&m.DeletedAt,
		&m.DeletedBy,
	)
}

// Create inserts a new member record
func (r *Repository) Create(ctx context.Context, m *MemberRecord) error {
	query := `
		INSERT INTO member_records (id, library_id, actor_id, member_code, full_name, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query, m.ID, m.LibraryID, m.ActorID, m.MemberCode, m.FullName, m.Email, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

// GetByID retrieves a live member record within a library
func (r *Repository) GetByID(ctx context.Context, libraryID, id string) (*MemberRecord, error) {
	query := `
		SELECT ` + columns + `
		FROM member_records
		WHERE library_id = $1 AND id = $2 AND is_deleted = FALSE
	`
	return r.getOne(ctx, query, libraryID, id)
}

// FindByActor retrieves the live record linked to an actor in a library
func (r *Repository) FindByActor(ctx context.Context, libraryID, actorID string) (*MemberRecord, error) {
	query := `
		SELECT ` + columns + `
		FROM member_records
		WHERE library_id = $1 AND actor_id = $2 AND is_deleted = FALSE
	`
	return r.getOne(ctx, query, libraryID, actorID)
}

func (r *Repository) getOne(ctx context.Context, query string, args ...any) (*MemberRecord, error) {
	m := &MemberRecord{}
	if err := scan(r.db.QueryRowContext(ctx, query, args...), m); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// List retrieves the live member records of a library
func (r *Repository) List(ctx context.Context, libraryID string) ([]*MemberRecord, error) {
	query := `
		SELECT ` + columns + `
		FROM member_records
		WHERE library_id = $1 AND is_deleted = FALSE
		ORDER BY member_code
	`

	rows, err := r.db.QueryContext(ctx, query, libraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*MemberRecord
	for rows.Next() {
		m := &MemberRecord{}
		if err := scan(rows, m); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}
