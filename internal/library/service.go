package library

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
	"github.com/fkhayef/librarycore/internal/staff"
)

// Service handles library business logic
type Service struct {
	db       *sql.DB
	repo     *Repository
	staff    *staff.Service
	engine   *authz.Engine
	defaults Settings
	clock    clock.Clock
	logger   zerolog.Logger
}

// NewService creates a new library service. defaults fill settings a
// registration leaves out.
func NewService(db *sql.DB, repo *Repository, staffService *staff.Service, engine *authz.Engine, defaults Settings, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		staff:    staffService,
		engine:   engine,
		defaults: defaults,
		clock:    clk,
		logger:   logger.With().Str("component", "library").Logger(),
	}
}

// Create registers a library with actorID as its founding owner
func (s *Service) Create(ctx context.Context, actorID string, req *CreateLibraryRequest) (*Library, *staff.StaffMembership, error) {
	if actorID == "" {
		return nil, nil, apperror.ErrPermissionDenied
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, nil, apperror.Invalid("library name is required")
	}
	settings := s.defaults
	if req.Settings != nil {
		settings = *req.Settings
	}
	if !settings.Validate() {
		return nil, nil, apperror.Invalid("invalid library settings")
	}

	now := s.clock.Now()
	lib := &Library{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    StatusActive,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var owner *staff.StaffMembership
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.repo.WithTx(tx).Create(ctx, lib); err != nil {
			return err
		}
		var err error
		owner, err = s.staff.Register(ctx, tx, lib.ID, actorID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().
		Str("event", "library_created").
		Str("library_id", lib.ID).
		Str("actor_id", actorID).
		Msg("library registered")
	return lib, owner, nil
}

// Get returns a library. Libraries that are not active are hidden from
// actors without an effective role there.
func (s *Service) Get(ctx context.Context, actorID, id string) (*Library, error) {
	lib, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lib == nil {
		return nil, fmt.Errorf("library: %w", apperror.ErrNotFound)
	}
	if lib.Status == StatusActive {
		return lib, nil
	}

	role, err := s.engine.RoleOf(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if role == authz.RoleNone {
		return nil, fmt.Errorf("library: %w", apperror.ErrNotFound)
	}
	return lib, nil
}

// List returns active libraries plus any the actor staffs
func (s *Service) List(ctx context.Context, actorID string) ([]*Library, error) {
	staffed, err := s.engine.LibraryIDsOf(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListVisible(ctx, staffed)
}

// UpdateSettings replaces a library's circulation settings
func (s *Service) UpdateSettings(ctx context.Context, actorID, id string, req *UpdateSettingsRequest) (*Library, error) {
	if _, err := s.engine.Require(ctx, actorID, id, authz.PermManageSettings); err != nil {
		return nil, err
	}

	settings := Settings{
		LoanPeriodDays: req.LoanPeriodDays,
		MaxRenewals:    req.MaxRenewals,
		LateFeeRate:    req.LateFeeRate,
	}
	if !settings.Validate() {
		return nil, apperror.Invalid("invalid library settings")
	}

	lib, err := s.repo.UpdateSettings(ctx, id, settings, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if lib == nil {
		return nil, fmt.Errorf("library: %w", apperror.ErrNotFound)
	}

	s.logger.Info().
		Str("event", "library_settings_updated").
		Str("library_id", id).
		Str("actor_id", actorID).
		Msg("library settings updated")
	return lib, nil
}

// SetStatus changes a library's status. Deactivation is how a tenant is
// deleted, so only owners may do it.
func (s *Service) SetStatus(ctx context.Context, actorID, id string, status Status) (*Library, error) {
	if !status.Valid() {
		return nil, apperror.Invalid("unknown library status %q", status)
	}
	if _, err := s.engine.Require(ctx, actorID, id, authz.PermDeleteLibrary); err != nil {
		return nil, err
	}

	lib, err := s.repo.SetStatus(ctx, id, status, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if lib == nil {
		return nil, fmt.Errorf("library: %w", apperror.ErrNotFound)
	}

	s.logger.Info().
		Str("event", "library_status_changed").
		Str("library_id", id).
		Str("actor_id", actorID).
		Str("status", string(status)).
		Msg("library status changed")
	return lib, nil
}
