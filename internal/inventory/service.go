package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fkhayef/librarycore/internal/apperror"
	"github.com/fkhayef/librarycore/internal/authz"
	"github.com/fkhayef/librarycore/internal/catalog"
	"github.com/fkhayef/librarycore/internal/clock"
	"github.com/fkhayef/librarycore/internal/database"
)

// Service handles copy business logic
type Service struct {
	db       *sql.DB
	repo     *Repository
	editions *catalog.Repository
	engine   *authz.Engine
	clock    clock.Clock
	logger   zerolog.Logger
}

// NewService creates a new inventory service
func NewService(db *sql.DB, repo *Repository, editions *catalog.Repository, engine *authz.Engine, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		editions: editions,
		engine:   engine,
		clock:    clk,
		logger:   logger.With().Str("component", "inventory").Logger(),
	}
}

// Create adds an available, active copy of an existing edition
func (s *Service) Create(ctx context.Context, actorID, libraryID string, req *CreateCopyRequest) (*Copy, error) {
	if _, err := s.engine.Require(ctx, actorID, libraryID, authz.PermManageInventory); err != nil {
		return nil, err
	}

	barcode := strings.TrimSpace(req.Barcode)
	if barcode == "" {
		return nil, apperror.Invalid("barcode is required")
	}

	edition, err := s.editions.GetByID(ctx, req.EditionID)
	if err != nil {
		return nil, err
	}
	if edition == nil {
		return nil, fmt.Errorf("edition: %w", apperror.ErrNotFound)
	}

	now := s.clock.Now()
	c := &Copy{
		ID:           uuid.NewString(),
		LibraryID:    libraryID,
		EditionID:    edition.ID,
		Barcode:      barcode,
		Status:       StatusActive,
		Availability: AvailabilityState{Status: Available},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("barcode %q is taken: %w", barcode, apperror.ErrConflict)
		}
		return nil, err
	}

	s.logger.Info().
		Str("event", "copy_created").
		Str("library_id", libraryID).
		Str("actor_id", actorID).
		Str("copy_id", c.ID).
		Msg("copy created")
	return c, nil
}

// Get returns a live copy; any staff role may read it
func (s *Service) Get(ctx context.Context, actorID, libraryID, id string) (*Copy, error) {
	if _, err := s.engine.Require(ctx, actorID, libraryID, authz.PermCirculation); err != nil {
		return nil, err
	}

	c, err := s.repo.GetByID(ctx, libraryID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("copy: %w", apperror.ErrNotFound)
	}
	return c, nil
}

// List returns the live copies of a library
func (s *Service) List(ctx context.Context, actorID, libraryID string, availability Availability) ([]*Copy, error) {
	if _, err := s.engine.Require(ctx, actorID, libraryID, authz.PermCirculation); err != nil {
		return nil, err
	}
	if availability != "" && availability != Available && availability != Borrowed {
		return nil, apperror.Invalid("unknown availability %q", availability)
	}
	return s.repo.List(ctx, libraryID, availability)
}

// SetStatus changes a copy's administrative condition. Availability is not
// touched; a borrowed copy may only stay active or be declared lost.
func (s *Service) SetStatus(ctx context.Context, actorID, libraryID, id string, status Status) (*Copy, error) {
	if !status.Valid() {
		return nil, apperror.Invalid("unknown copy status %q", status)
	}
	if _, err := s.engine.Require(ctx, actorID, libraryID, authz.PermManageInventory); err != nil {
		return nil, err
	}

	var updated *Copy
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)

		c, err := repo.GetByID(ctx, libraryID, id)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("copy: %w", apperror.ErrNotFound)
		}
		if c.Availability.Status == Borrowed && status != StatusActive && status != StatusLost {
			return fmt.Errorf("copy is on loan: %w", apperror.ErrConflict)
		}

		if err := repo.SetStatus(ctx, libraryID, id, status, s.clock.Now()); err != nil {
			return err
		}
		updated, err = repo.GetByID(ctx, libraryID, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("event", "copy_status_changed").
		Str("library_id", libraryID).
		Str("actor_id", actorID).
		Str("copy_id", id).
		Str("status", string(status)).
		Msg("copy status changed")
	return updated, nil
}
