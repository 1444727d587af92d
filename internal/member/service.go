package member

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

// Service handles member record business logic
type Service struct {
	repo   *Repository
	engine *authz.Engine
	clock  clock.Clock
	logger zerolog.Logger
}

// NewService creates a new member service
func NewService(repo *Repository, engine *authz.Engine, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		engine: engine,
		clock:  clk,
		logger: logger.With().Str("component", "member").Logger(),
	}
}

// Create registers a patron in a library
func (s *Service) Create(ctx context.Context, actorID, libraryID string, req *CreateMemberRequest) (*MemberRecord, error) {
	if _, err := s.engine.Require(ctx, actorID, libraryID, authz.PermManageMembers); err != nil {
		return nil, err
	}

	code := strings.TrimSpace(req.MemberCode)
	name := strings.TrimSpace(req.FullName)
	if code == "" || name == "" {
		return nil, apperror.Invalid("member code and full name are required")
	}

	return s.create(ctx, s.repo, actorID, &MemberRecord{
		LibraryID:  libraryID,
		ActorID:    req.ActorID,
		MemberCode: code,
		FullName:   name,
		Email:      req.Email,
	})
}

// Enroll creates a member record linked to actorID inside tx on behalf of
// grantorID, generating a member code
func (s *Service) Enroll(ctx context.Context, tx *sql.Tx, grantorID, libraryID, actorID, email string) (*MemberRecord, error) {
	if _, err := s.engine.Require(ctx, grantorID, libraryID, authz.PermManageMembers); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	existing, err := repo.FindByActor(ctx, libraryID, actorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("actor is already a member of this library: %w", apperror.ErrConflict)
	}

	return s.create(ctx, repo, grantorID, &MemberRecord{
		LibraryID:  libraryID,
		ActorID:    &actorID,
		MemberCode: GenerateCode(),
		FullName:   email,
		Email:      &email,
	})
}

func (s *Service) create(ctx context.Context, repo *Repository, actorID string, m *MemberRecord) (*MemberRecord, error) {
	m.ID = uuid.NewString()
	m.CreatedAt = s.clock.Now()

	if err := repo.Create(ctx, m); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("member code %q is taken: %w", m.MemberCode, apperror.ErrConflict)
		}
		return nil, err
	}

	s.logger.Info().
		Str("event", "member_created").
		Str("library_id", m.LibraryID).
		Str("actor_id", actorID).
		Str("member_id", m.ID).
		Msg("member record created")
	return m, nil
}

// Get returns a live member record; any staff role may read it
func (s *Service) Get(ctx context.Context, actorID, libraryID, id string) (*MemberRecord, error) {
	if _, err := s.engine.Require(ctx, actorID, libraryID, authz.PermCirculation); err != nil {
		return nil, err
	}

	m, err := s.repo.GetByID(ctx, libraryID, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("member: %w", apperror.ErrNotFound)
	}
	return m, nil
}

// List returns the live member records of a library
func (s *Service) List(ctx context.Context, actorID, libraryID string) ([]*MemberRecord, error) {
	if _, err := s.engine.Require(ctx, actorID, libraryID, authz.PermCirculation); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, libraryID)
}

// GenerateCode returns a fresh member code for self-service enrolment
func GenerateCode() string {
	return "M-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
