package invitation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fkhayef/librarycore/internal/authz"
	"github.com/fkhayef/librarycore/internal/database"
)

// Repository handles invitation database operations
type Repository struct {
	db database.Querier
}

// NewRepository creates a new invitation repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

const columns = `id, library_id, email, role, type, token_hash, status, invited_by, inviter_staff_id, expires_at, created_at, responded_at`

func scan(row interface{ Scan(...any) error }, i *Invitation) error {
	var role sql.NullString
	err := row.Scan(
		&i.ID,
		&i.LibraryID,
		&i.Email,
		&role,
		&i.Type,
		&i.TokenHash,
		&i.Status,
		&i.InvitedBy,
		&i.InviterStaffID,
		&i.ExpiresAt,
		&i.CreatedAt,
		&i.RespondedAt,
	)
	if err != nil {
		return err
	}
	if role.Valid {
		r := authz.Role(role.String)
		i.Role = &r
	}
	return nil
}

// Create inserts a new pending invitation
func (r *Repository) Create(ctx context.Context, i *Invitation) error {
	query := `
		INSERT INTO invitations (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		i.ID, i.LibraryID, i.Email, i.Role, i.Type, i.TokenHash, i.Status,
		i.InvitedBy, i.InviterStaffID, i.ExpiresAt, i.CreatedAt, i.RespondedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// GetByID retrieves an invitation by id
func (r *Repository) GetByID(ctx context.Context, id string) (*Invitation, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM invitations WHERE id = $1`, id)
}

// GetByTokenHash retrieves the invitation a token was issued for
func (r *Repository) GetByTokenHash(ctx context.Context, hash string) (*Invitation, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM invitations WHERE token_hash = $1`, hash)
}

// FindPending retrieves the pending invitation for an address, if any
func (r *Repository) FindPending(ctx context.Context, libraryID, email string, typ Type) (*Invitation, error) {
	query := `
		SELECT ` + columns + `
		FROM invitations
		WHERE library_id = $1 AND lower(email) = lower($2) AND type = $3 AND status = 'pending'
	`
	return r.getOne(ctx, query, libraryID, email, typ)
}

func (r *Repository) getOne(ctx context.Context, query string, args ...any) (*Invitation, error) {
	i := &Invitation{}
	if err := scan(r.db.QueryRowContext(ctx, query, args...), i); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return i, nil
}

// ListByLibrary retrieves a library's invitations, newest first
func (r *Repository) ListByLibrary(ctx context.Context, libraryID string) ([]*Invitation, error) {
	query := `
		SELECT ` + columns + `
		FROM invitations
		WHERE library_id = $1
		ORDER BY created_at DESC, id
	`

	rows, err := r.db.QueryContext(ctx, query, libraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*Invitation
	for rows.Next() {
		i := &Invitation{}
		if err := scan(rows, i); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, i)
	}

	return invitations, rows.Err()
}

// Settle moves a pending invitation to status. It reports false if the
// invitation was no longer pending.
func (r *Repository) Settle(ctx context.Context, id string, status Status, now time.Time) (bool, error) {
	query := `
		UPDATE invitations
		SET status = $1, responded_at = $2
		WHERE id = $3 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, status, now, id)
	if err != nil {
		return false, fmt.Errorf("failed to settle invitation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to settle invitation: %w", err)
	}
	return n == 1, nil
}

// AppendResponse records how an invitation was settled
func (r *Repository) AppendResponse(ctx context.Context, resp *Response) error {
	query := `
		INSERT INTO invitation_responses (id, invitation_id, response, actor_id, staff_membership_id, member_record_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		resp.ID, resp.InvitationID, resp.Response, resp.ActorID,
		resp.StaffMembershipID, resp.MemberRecordID, resp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record invitation response: %w", err)
	}
	return nil
}

// ListResponses retrieves the response rows of an invitation
func (r *Repository) ListResponses(ctx context.Context, invitationID string) ([]*Response, error) {
	query := `
		SELECT id, invitation_id, response, actor_id, staff_membership_id, member_record_id, created_at
		FROM invitation_responses
		WHERE invitation_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, invitationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitation responses: %w", err)
	}
	defer rows.Close()

	var responses []*Response
	for rows.Next() {
		resp := &Response{}
		err := rows.Scan(
			&resp.ID,
			&resp.InvitationID,
			&resp.Response,
			&resp.ActorID,
			&resp.StaffMembershipID,
			&resp.MemberRecordID,
			&resp.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation response: %w", err)
		}
		responses = append(responses, resp)
	}

	return responses, rows.Err()
}
