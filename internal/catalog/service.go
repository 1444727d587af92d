package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fkhayef/librarycore/internal/apperror"
	"github.com/fkhayef/librarycore/internal/authz"
	"github.com/fkhayef/librarycore/internal/clock"
	"github.com/fkhayef/librarycore/internal/database"
)

// Service handles catalog business logic
type Service struct {
	db     *sql.DB
	repo   *Repository
	engine *authz.Engine
	clock  clock.Clock
	logger zerolog.Logger
}

// NewService creates a new catalog service
func NewService(db *sql.DB, repo *Repository, engine *authz.Engine, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		engine: engine,
		clock:  clk,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// Create adds an edition to the shared catalog
func (s *Service) Create(ctx context.Context, actorID string, req *EditionRequest) (*BookEdition, error) {
	if err := s.engine.RequireCatalogAccess(ctx, actorID); err != nil {
		return nil, err
	}

	e, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	if req.ISBN != nil {
		isbn, err := NormalizeISBN(*req.ISBN)
		if err != nil {
			return nil, err
		}
		e.ISBN = &isbn
	}

	if err := s.repo.Create(ctx, e); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("an edition with this ISBN exists: %w", apperror.ErrConflict)
		}
		return nil, err
	}

	s.logger.Info().
		Str("event", "edition_created").
		Str("actor_id", actorID).
		Str("edition_id", e.ID).
		Msg("edition created")
	return e, nil
}

// UpsertByISBN creates or refreshes the edition identified by isbn. This is
// the enrichment crawler's write path.
func (s *Service) UpsertByISBN(ctx context.Context, actorID, isbn string, req *EditionRequest) (*BookEdition, bool, error) {
	if err := s.engine.RequireCatalogAccess(ctx, actorID); err != nil {
		return nil, false, err
	}

	normalized, err := NormalizeISBN(isbn)
	if err != nil {
		return nil, false, err
	}
	incoming, err := s.fromRequest(req)
	if err != nil {
		return nil, false, err
	}
	incoming.ISBN = &normalized

	var (
		result  *BookEdition
		created bool
	)
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.GetByISBN(ctx, normalized)
		if err != nil {
			return err
		}
		if existing == nil {
			created = true
			result = incoming
			return repo.Create(ctx, incoming)
		}

		existing.Title = incoming.Title
		existing.Authors = incoming.Authors
		existing.Publisher = incoming.Publisher
		existing.PublishedYear = incoming.PublishedYear
		existing.UpdatedAt = incoming.UpdatedAt
		result = existing
		return repo.Update(ctx, existing)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, false, fmt.Errorf("concurrent upsert for ISBN %s: %w", normalized, apperror.ErrConflict)
		}
		return nil, false, err
	}

	s.logger.Info().
		Str("event", "edition_upserted").
		Str("actor_id", actorID).
		Str("edition_id", result.ID).
		Str("isbn", normalized).
		Bool("created", created).
		Msg("edition upserted")
	return result, created, nil
}

// Get returns an edition
func (s *Service) Get(ctx context.Context, id string) (*BookEdition, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("edition: %w", apperror.ErrNotFound)
	}
	return e, nil
}

// List returns a page of editions and the total count
func (s *Service) List(ctx context.Context, page, perPage int) ([]*BookEdition, int, error) {
	return s.repo.List(ctx, perPage, (page-1)*perPage)
}

func (s *Service) fromRequest(req *EditionRequest) (*BookEdition, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperror.Invalid("title is required")
	}

	var authors []string
	for _, a := range req.Authors {
		if a = strings.TrimSpace(a); a != "" {
			authors = append(authors, a)
		}
	}

	now := s.clock.Now()
	return &BookEdition{
		ID:            uuid.NewString(),
		Title:         title,
		Authors:       authors,
		Publisher:     req.Publisher,
		PublishedYear: req.PublishedYear,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
