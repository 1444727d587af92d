package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fkhayef/librarycore/internal/database"
)

// Repository handles library persistence
type Repository struct {
	db database.Querier
}

// NewRepository creates a new library repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

const columns = `id, name, status, loan_period_days, max_renewals, late_fee_rate, created_at, updated_at`

func scan(row interface{ Scan(...any) error }, l *Library) error {
	return row.Scan(
		&l.ID,
		&l.Name,
		&l.Status,
		&l.Settings.LoanPeriodDays,
		&l.Settings.MaxRenewals,
		&l.Settings.LateFeeRate,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
}

// Create inserts a new library
func (r *Repository) Create(ctx context.Context, l *Library) error {
	query := `
		INSERT INTO libraries (id, name, status, loan_period_days, max_renewals, late_fee_rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		l.ID, l.Name, l.Status,
		l.Settings.LoanPeriodDays, l.Settings.MaxRenewals, l.Settings.LateFeeRate,
		l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create library: %w", err)
	}
	return nil
}

// GetByID retrieves a library by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*Library, error) {
	query := `SELECT ` + columns + ` FROM libraries WHERE id = $1`

	l := &Library{}
	if err := scan(r.db.QueryRowContext(ctx, query, id), l); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get library: %w", err)
	}
	return l, nil
}

// ListVisible returns active libraries plus the given staffed ones
func (r *Repository) ListVisible(ctx context.Context, staffed []string) ([]*Library, error) {
	query := `SELECT ` + columns + ` FROM libraries WHERE status = 'active'`
	args := make([]any, len(staffed))
	for i, id := range staffed {
		args[i] = id
	}
	if len(staffed) > 0 {
		query += ` OR id IN (` + database.Placeholders(1, len(staffed)) + `)`
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list libraries: %w", err)
	}
	defer rows.Close()

	var libraries []*Library
	for rows.Next() {
		l := &Library{}
		if err := scan(rows, l); err != nil {
			return nil, fmt.Errorf("failed to scan library: %w", err)
		}
		libraries = append(libraries, l)
	}

	return libraries, rows.Err()
}

// UpdateSettings replaces the circulation settings of a library
func (r *Repository) UpdateSettings(ctx context.Context, id string, s Settings, now time.Time) (*Library, error) {
	query := `
		UPDATE libraries
		SET loan_period_days = $1, max_renewals = $2, late_fee_rate = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.db.ExecContext(ctx, query, s.LoanPeriodDays, s.MaxRenewals, s.LateFeeRate, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update library settings: %w", err)
	}
	return r.afterUpdate(ctx, id, result)
}

// SetStatus changes a library's status
func (r *Repository) SetStatus(ctx context.Context, id string, status Status, now time.Time) (*Library, error) {
	query := `UPDATE libraries SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, status, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update library status: %w", err)
	}
	return r.afterUpdate(ctx, id, result)
}

func (r *Repository) afterUpdate(ctx context.Context, id string, result sql.Result) (*Library, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}
