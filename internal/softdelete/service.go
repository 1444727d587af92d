// Package softdelete turns deletes on staff memberships, member records and
// copies into tombstone writes and handles their restore.
package softdelete

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fkhayef/librarycore/internal/apperror"
	"github.com/fkhayef/librarycore/internal/authz"
	"github.com/fkhayef/librarycore/internal/clock"
	"github.com/fkhayef/librarycore/internal/database"
)

// deletePermission is the privileged-deleter rule of each collection
var deletePermission = map[Collection]authz.Permission{
	CollectionStaff:   authz.PermManageStaff,
	CollectionMembers: authz.PermManageMembers,
	CollectionCopies:  authz.PermManageInventory,
}

// Service is the soft-delete manager
type Service struct {
	db     *sql.DB
	repo   *Repository
	engine *authz.Engine
	clock  clock.Clock
	logger zerolog.Logger
}

// NewService creates a new soft-delete service
func NewService(db *sql.DB, repo *Repository, engine *authz.Engine, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		engine: engine,
		clock:  clk,
		logger: logger.With().Str("component", "softdelete").Logger(),
	}
}

// Delete tombstones a live row, stamping the acting staff membership
func (s *Service) Delete(ctx context.Context, actorID, libraryID string, c Collection, id string) (*Record, error) {
	if !c.Valid() {
		return nil, apperror.Invalid("unknown collection %q", c)
	}
	acting, err := s.engine.Require(ctx, actorID, libraryID, deletePermission[c])
	if err != nil {
		return nil, err
	}

	var record *Record
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)

		target, err := repo.find(ctx, c, libraryID, id, false)
		if err != nil {
			return err
		}
		if target == nil {
			return fmt.Errorf("%s row: %w", c, apperror.ErrNotFound)
		}
		if err := s.checkDeleter(ctx, repo, acting, target); err != nil {
			return err
		}

		ok, err := repo.tombstone(ctx, c, libraryID, id, acting.ID, s.clock.Now())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s row: %w", c, apperror.ErrNotFound)
		}

		deleted, err := repo.find(ctx, c, libraryID, id, true)
		if err != nil {
			return err
		}
		record = &deleted.Record
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("event", "row_tombstoned").
		Str("collection", string(c)).
		Str("library_id", libraryID).
		Str("actor_id", actorID).
		Str("row_id", id).
		Msg("row soft-deleted")
	return record, nil
}

// checkDeleter applies the per-collection rules beyond the permission
func (s *Service) checkDeleter(ctx context.Context, repo *Repository, acting *authz.Membership, target *row) error {
	switch target.Collection {
	case CollectionStaff:
		if authz.Role(target.guard) != authz.RoleOwner {
			return nil
		}
		if acting.Role != authz.RoleOwner {
			return apperror.ErrPermissionDenied
		}
		others, err := repo.countActiveOwners(ctx, target.LibraryID, target.ID)
		if err != nil {
			return err
		}
		if others == 0 {
			return fmt.Errorf("library must keep at least one active owner: %w", apperror.ErrConflict)
		}
	case CollectionCopies:
		if target.guard == "borrowed" {
			return fmt.Errorf("copy is on loan: %w", apperror.ErrConflict)
		}
	}
	return nil
}

// Restore clears a row's tombstone. Only owners and managers may restore.
func (s *Service) Restore(ctx context.Context, actorID, libraryID string, c Collection, id string) (*Record, error) {
	if !c.Valid() {
		return nil, apperror.Invalid("unknown collection %q", c)
	}
	if _, err := s.engine.Require(ctx, actorID, libraryID, authz.PermRestore); err != nil {
		return nil, err
	}

	var record *Record
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.restore(ctx, c, libraryID, id)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("a live %s row holds the same key: %w", c, apperror.ErrConflict)
			}
			return err
		}
		if !ok {
			return fmt.Errorf("deleted %s row: %w", c, apperror.ErrNotFound)
		}

		restored, err := repo.find(ctx, c, libraryID, id, false)
		if err != nil {
			return err
		}
		record = &restored.Record
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("event", "row_restored").
		Str("collection", string(c)).
		Str("library_id", libraryID).
		Str("actor_id", actorID).
		Str("row_id", id).
		Msg("row restored")
	return record, nil
}

// ListDeleted returns the tombstoned rows of a collection for the restore
// view
func (s *Service) ListDeleted(ctx context.Context, actorID, libraryID string, c Collection) ([]*Record, error) {
	if !c.Valid() {
		return nil, apperror.Invalid("unknown collection %q", c)
	}
	if _, err := s.engine.Require(ctx, actorID, libraryID, authz.PermRestore); err != nil {
		return nil, err
	}
	return s.repo.ListDeleted(ctx, c, libraryID)
}
