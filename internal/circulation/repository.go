package circulation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fkhayef/librarycore/internal/database"
)

// Repository handles borrowing transaction and event persistence. There is
// no delete; events are insert-only.
type Repository struct {
	db database.Querier
}

// NewRepository creates a new circulation repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

const columns = `id, library_id, copy_id, member_id, staff_id, request_id, status, checkout_date, due_date,
	return_date, renewal_count, created_at, updated_at`

func scan(row interface{ Scan(...any) error }, t *Transaction) error {
	return row.Scan(
		&t.ID,
		&t.LibraryID,
		&t.CopyID,
		&t.MemberID,
		&t.StaffID,
		&t.RequestID,
		&t.Status,
		&t.CheckoutDate,
		&t.DueDate,
		&t.ReturnDate,
		&t.RenewalCount,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
}

// Create inserts a new transaction
func (r *Repository) Create(ctx context.Context, t *Transaction) error {
	query := `
		INSERT INTO borrowing_transactions
			(id, library_id, copy_id, member_id, staff_id, request_id, status, checkout_date, due_date,
			 renewal_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.LibraryID, t.CopyID, t.MemberID, t.StaffID, t.RequestID, t.Status,
		t.CheckoutDate, t.DueDate, t.RenewalCount, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*Transaction, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM borrowing_transactions WHERE id = $1`, id)
}

// GetByRequestID retrieves the transaction a checkout request created
func (r *Repository) GetByRequestID(ctx context.Context, libraryID, requestID string) (*Transaction, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM borrowing_transactions WHERE library_id = $1 AND request_id = $2`, libraryID, requestID)
}

func (r *Repository) getOne(ctx context.Context, query string, args ...any) (*Transaction, error) {
	t := &Transaction{}
	if err := scan(r.db.QueryRowContext(ctx, query, args...), t); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// List retrieves a library's transactions, newest first, optionally by
// status
func (r *Repository) List(ctx context.Context, libraryID string, status Status) ([]*Transaction, error) {
	query := `SELECT ` + columns + ` FROM borrowing_transactions WHERE library_id = $1`
	args := []any{libraryID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY checkout_date DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*Transaction
	for rows.Next() {
		t := &Transaction{}
		if err := scan(rows, t); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}

// Close moves a transaction in one of the from statuses to a terminal
// status. It reports false if the transaction was in none of them.
func (r *Repository) Close(ctx context.Context, id string, from []Status, to Status, returnDate *time.Time, now time.Time) (bool, error) {
	query := `
		UPDATE borrowing_transactions
		SET status = $1, return_date = $2, updated_at = $3
		WHERE id = $4 AND status IN (` + database.Placeholders(5, len(from)) + `)
	`

	args := []any{to, returnDate, now, id}
	for _, f := range from {
		args = append(args, f)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to close transaction: %w", err)
	}
	return affectedOne(result)
}

// MarkOverdue flags an active transaction overdue
func (r *Repository) MarkOverdue(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `
		UPDATE borrowing_transactions
		SET status = 'overdue', updated_at = $1
		WHERE id = $2 AND status = 'active'
	`

	result, err := r.db.ExecContext(ctx, query, now, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction overdue: %w", err)
	}
	return affectedOne(result)
}

// Renew extends the due date of an active transaction whose renewal count
// is still seen
func (r *Repository) Renew(ctx context.Context, id string, due time.Time, seen int, now time.Time) (bool, error) {
	query := `
		UPDATE borrowing_transactions
		SET due_date = $1, renewal_count = renewal_count + 1, updated_at = $2
		WHERE id = $3 AND status = 'active' AND renewal_count = $4
	`

	result, err := r.db.ExecContext(ctx, query, due, now, id, seen)
	if err != nil {
		return false, fmt.Errorf("failed to renew transaction: %w", err)
	}
	return affectedOne(result)
}

// AppendEvent inserts an audit event
func (r *Repository) AppendEvent(ctx context.Context, e *Event) error {
	query := `
		INSERT INTO transaction_events (id, transaction_id, event_type, acting_staff_id, acting_member_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.TransactionID, e.Type, e.ActingStaffID, e.ActingMemberID, string(e.Payload), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction event: %w", err)
	}
	return nil
}

// ListEvents returns a transaction's events in order
func (r *Repository) ListEvents(ctx context.Context, transactionID string) ([]*Event, error) {
	query := `
		SELECT id, transaction_id, event_type, acting_staff_id, acting_member_id, payload, created_at
		FROM transaction_events
		WHERE transaction_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		e := &Event{}
		var payload []byte
		if err := rows.Scan(
			&e.ID,
			&e.TransactionID,
			&e.Type,
			&e.ActingStaffID,
			&e.ActingMemberID,
			&payload,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction event: %w", err)
		}
		e.Payload = payload
		events = append(events, e)
	}

	return events, rows.Err()
}

func affectedOne(result sql.Result) (bool, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}
