package authz

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fkhayef/librarycore/internal/database"
)

// Repository reads staff memberships for authorization decisions
type Repository struct {
	db database.Querier
}

// NewRepository creates a new authorization repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

const membershipColumns = `sm.id, sm.library_id, sm.actor_id, sm.role, sm.is_active, l.status`

// FindMembership returns the actor's live membership in a library, or nil
func (r *Repository) FindMembership(ctx context.Context, actorID, libraryID string) (*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM staff_memberships sm
		JOIN libraries l ON l.id = sm.library_id
		WHERE sm.actor_id = $1 AND sm.library_id = $2 AND sm.is_deleted = FALSE
	`

	m := &Membership{}
	err := r.db.QueryRowContext(ctx, query, actorID, libraryID).Scan(
		&m.ID,
		&m.LibraryID,
		&m.ActorID,
		&m.Role,
		&m.IsActive,
		&m.LibraryStatus,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return m, nil
}

// ListMemberships returns every live membership held by an actor
func (r *Repository) ListMemberships(ctx context.Context, actorID string) ([]*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM staff_memberships sm
		JOIN libraries l ON l.id = sm.library_id
		WHERE sm.actor_id = $1 AND sm.is_deleted = FALSE
		ORDER BY sm.created_at
	`

	rows, err := r.db.QueryContext(ctx, query, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*Membership
	for rows.Next() {
		m := &Membership{}
		if err := rows.Scan(
			&m.ID,
			&m.LibraryID,
			&m.ActorID,
			&m.Role,
			&m.IsActive,
			&m.LibraryStatus,
		); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}

	return memberships, rows.Err()
}
