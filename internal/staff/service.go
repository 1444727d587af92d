package staff

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fkhayef/librarycore/internal/apperror"
	"github.com/fkhayef/librarycore/internal/authz"
	"github.com/fkhayef/librarycore/internal/clock"
	"github.com/fkhayef/librarycore/internal/database"
)

// Service handles staff membership business logic
type Service struct {
	db     *sql.DB
	repo   *Repository
	engine *authz.Engine
	clock  clock.Clock
	logger zerolog.Logger
}

// NewService creates a new staff service
func NewService(db *sql.DB, repo *Repository, engine *authz.Engine, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		engine: engine,
		clock:  clk,
		logger: logger.With().Str("component", "staff").Logger(),
	}
}

// List returns the live staff of a library; any staff role may read it
func (s *Service) List(ctx context.Context, actorID, libraryID string) ([]*StaffMembership, error) {
	if _, err := s.engine.Require(ctx, actorID, libraryID, authz.PermCirculation); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, libraryID)
}

// Get returns one live membership
func (s *Service) Get(ctx context.Context, actorID, libraryID, id string) (*StaffMembership, error) {
	if _, err := s.engine.Require(ctx, actorID, libraryID, authz.PermCirculation); err != nil {
		return nil, err
	}

	m, err := s.repo.GetByID(ctx, libraryID, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("staff membership: %w", apperror.ErrNotFound)
	}
	return m, nil
}

// RequireGrant checks that grantor may hand out role in the library.
// Staff management is needed for any grant; manager and owner are
// elevations only an owner may make.
func (s *Service) RequireGrant(ctx context.Context, grantorID, libraryID string, role authz.Role) (*authz.Membership, error) {
	if !role.Valid() {
		return nil, apperror.Invalid("unknown role %q", role)
	}

	perm := authz.PermManageStaff
	if role.AtLeast(authz.RoleManager) {
		perm = authz.PermManageStaffRoles
	}
	return s.engine.Require(ctx, grantorID, libraryID, perm)
}

// Grant creates a membership for actorID inside tx on behalf of grantorID
func (s *Service) Grant(ctx context.Context, tx *sql.Tx, grantorID, libraryID, actorID string, role authz.Role) (*StaffMembership, error) {
	if _, err := s.RequireGrant(ctx, grantorID, libraryID, role); err != nil {
		return nil, err
	}
	return s.create(ctx, s.repo.WithTx(tx), libraryID, actorID, role)
}

// Register creates the founding owner membership of a new library inside tx
func (s *Service) Register(ctx context.Context, tx *sql.Tx, libraryID, actorID string) (*StaffMembership, error) {
	return s.create(ctx, s.repo.WithTx(tx), libraryID, actorID, authz.RoleOwner)
}

func (s *Service) create(ctx context.Context, repo *Repository, libraryID, actorID string, role authz.Role) (*StaffMembership, error) {
	existing, err := repo.FindByActor(ctx, libraryID, actorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("actor is already staff in this library: %w", apperror.ErrConflict)
	}

	m := &StaffMembership{
		ID:        uuid.NewString(),
		LibraryID: libraryID,
		ActorID:   actorID,
		Role:      role,
		IsActive:  true,
		CreatedAt: s.clock.Now(),
	}
	if err := repo.Create(ctx, m); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("actor is already staff in this library: %w", apperror.ErrConflict)
		}
		return nil, err
	}

	s.logger.Info().
		Str("event", "staff_created").
		Str("library_id", libraryID).
		Str("actor_id", actorID).
		Str("staff_id", m.ID).
		Str("role", string(role)).
		Msg("staff membership created")
	return m, nil
}

// ChangeRole sets a new role on a membership. Only owners may do this, and
// the last active owner cannot be demoted.
func (s *Service) ChangeRole(ctx context.Context, actorID, libraryID, staffID string, role authz.Role) (*StaffMembership, error) {
	if !role.Valid() {
		return nil, apperror.Invalid("unknown role %q", role)
	}
	if _, err := s.engine.Require(ctx, actorID, libraryID, authz.PermManageStaffRoles); err != nil {
		return nil, err
	}

	var updated *StaffMembership
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)

		target, err := repo.GetByID(ctx, libraryID, staffID)
		if err != nil {
			return err
		}
		if target == nil {
			return fmt.Errorf("staff membership: %w", apperror.ErrNotFound)
		}

		if target.Role == authz.RoleOwner && role != authz.RoleOwner && target.IsActive {
			if err := s.ensureAnotherOwner(ctx, repo, libraryID); err != nil {
				return err
			}
		}

		updated, err = repo.UpdateRole(ctx, libraryID, staffID, role)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("event", "staff_role_changed").
		Str("library_id", libraryID).
		Str("actor_id", actorID).
		Str("staff_id", staffID).
		Str("role", string(role)).
		Msg("staff role changed")
	return updated, nil
}

// SetActive suspends or reactivates a membership. Managers cannot touch an
// owner, and the last active owner cannot be suspended.
func (s *Service) SetActive(ctx context.Context, actorID, libraryID, staffID string, active bool) (*StaffMembership, error) {
	acting, err := s.engine.Require(ctx, actorID, libraryID, authz.PermManageStaff)
	if err != nil {
		return nil, err
	}

	var updated *StaffMembership
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)

		target, err := repo.GetByID(ctx, libraryID, staffID)
		if err != nil {
			return err
		}
		if target == nil {
			return fmt.Errorf("staff membership: %w", apperror.ErrNotFound)
		}
		if target.Role == authz.RoleOwner && acting.Role != authz.RoleOwner {
			return apperror.ErrPermissionDenied
		}
		if !active && target.Role == authz.RoleOwner && target.IsActive {
			if err := s.ensureAnotherOwner(ctx, repo, libraryID); err != nil {
				return err
			}
		}

		updated, err = repo.SetActive(ctx, libraryID, staffID, active)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("event", "staff_activity_changed").
		Str("library_id", libraryID).
		Str("actor_id", actorID).
		Str("staff_id", staffID).
		Bool("is_active", active).
		Msg("staff activity changed")
	return updated, nil
}

func (s *Service) ensureAnotherOwner(ctx context.Context, repo *Repository, libraryID string) error {
	owners, err := repo.CountActiveOwners(ctx, libraryID)
	if err != nil {
		return err
	}
	if owners <= 1 {
		return fmt.Errorf("library must keep at least one active owner: %w", apperror.ErrConflict)
	}
	return nil
}
