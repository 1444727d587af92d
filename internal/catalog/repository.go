package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fkhayef/librarycore/internal/database"
)

// authorSeparator joins author names in the authors column
const authorSeparator = "; "

// Repository handles edition persistence
type Repository struct {
	db database.Querier
}

// NewRepository creates a new catalog repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

const columns = `id, isbn, title, authors, publisher, published_year, created_at, updated_at`

func scan(row interface{ Scan(...any) error }, e *BookEdition) error {
	var authors string
	if err := row.Scan(
		&e.ID,
		&e.ISBN,
		&e.Title,
		&authors,
		&e.Publisher,
		&e.PublishedYear,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return err
	}
	if authors != "" {
		e.Authors = strings.Split(authors, authorSeparator)
	}
	return nil
}

// Create inserts a new edition
func (r *Repository) Create(ctx context.Context, e *BookEdition) error {
	query := `
		INSERT INTO book_editions (id, isbn, title, authors, publisher, published_year, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.ISBN, e.Title, strings.Join(e.Authors, authorSeparator),
		e.Publisher, e.PublishedYear, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create edition: %w", err)
	}
	return nil
}

// Update replaces an edition's metadata
func (r *Repository) Update(ctx context.Context, e *BookEdition) error {
	query := `
		UPDATE book_editions
		SET title = $1, authors = $2, publisher = $3, published_year = $4, updated_at = $5
		WHERE id = $6
	`

	_, err := r.db.ExecContext(ctx, query,
		e.Title, strings.Join(e.Authors, authorSeparator),
		e.Publisher, e.PublishedYear, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update edition: %w", err)
	}
	return nil
}

// GetByID retrieves an edition by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*BookEdition, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM book_editions WHERE id = $1`, id)
}

// GetByISBN retrieves an edition by normalised ISBN-13
func (r *Repository) GetByISBN(ctx context.Context, isbn string) (*BookEdition, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM book_editions WHERE isbn = $1`, isbn)
}

func (r *Repository) getOne(ctx context.Context, query string, arg string) (*BookEdition, error) {
	e := &BookEdition{}
	if err := scan(r.db.QueryRowContext(ctx, query, arg), e); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get edition: %w", err)
	}
	return e, nil
}

// List retrieves editions with pagination, returning the total count
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*BookEdition, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM book_editions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count editions: %w", err)
	}

	query := `
		SELECT ` + columns + `
		FROM book_editions
		ORDER BY title, id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list editions: %w", err)
	}
	defer rows.Close()

	var editions []*BookEdition
	for rows.Next() {
		e := &BookEdition{}
		if err := scan(rows, e); err != nil {
			return nil, 0, fmt.Errorf("failed to scan edition: %w", err)
		}
		editions = append(editions, e)
	}

	return editions, total, rows.Err()
}
