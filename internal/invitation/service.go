package invitation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fkhayef/librarycore/internal/apperror"
	"github.com/fkhayef/librarycore/internal/authz"
	"github.com/fkhayef/librarycore/internal/clock"
	"github.com/fkhayef/librarycore/internal/database"
	"github.com/fkhayef/librarycore/internal/member"
	"github.com/fkhayef/librarycore/internal/notification"
	"github.com/fkhayef/librarycore/internal/staff"
)

// Service runs the invitation workflow
type Service struct {
	db       *sql.DB
	repo     *Repository
	staff    *staff.Service
	members  *member.Service
	engine   *authz.Engine
	notifier *notification.Service
	ttl      time.Duration
	clock    clock.Clock
	logger   zerolog.Logger
}

// NewService creates a new invitation service. Issued invitations expire
// after ttl.
func NewService(
	db *sql.DB,
	repo *Repository,
	staffService *staff.Service,
	memberService *member.Service,
	engine *authz.Engine,
	notifier *notification.Service,
	ttl time.Duration,
	clk clock.Clock,
	logger zerolog.Logger,
) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		staff:    staffService,
		members:  memberService,
		engine:   engine,
		notifier: notifier,
		ttl:      ttl,
		clock:    clk,
		logger:   logger.With().Str("component", "invitation").Logger(),
	}
}

// Issue creates a pending invitation and returns its raw token. Staff
// invitations need the right to grant the invited role; member invitations
// need member management.
func (s *Service) Issue(ctx context.Context, actorID, libraryID string, req *IssueRequest) (*IssueResult, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return nil, apperror.Invalid("invalid email %q", req.Email)
	}
	email := strings.ToLower(addr.Address)

	var (
		inviter *authz.Membership
		role    *authz.Role
	)
	switch req.Type {
	case TypeStaff:
		r, ok := authz.ParseRole(req.Role)
		if !ok {
			return nil, apperror.Invalid("unknown role %q", req.Role)
		}
		if inviter, err = s.staff.RequireGrant(ctx, actorID, libraryID, r); err != nil {
			return nil, err
		}
		role = &r
	case TypeMember:
		if req.Role != "" {
			return nil, apperror.Invalid("member invitations carry no role")
		}
		if inviter, err = s.engine.Require(ctx, actorID, libraryID, authz.PermManageMembers); err != nil {
			return nil, err
		}
	default:
		return nil, apperror.Invalid("unknown invitation type %q", req.Type)
	}

	pending, err := s.repo.FindPending(ctx, libraryID, email, req.Type)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		if !pending.Stale(s.clock.Now()) {
			return nil, fmt.Errorf("%s: %w", email, apperror.ErrDuplicateInvitation)
		}
		if err := s.expire(ctx, pending); err != nil {
			return nil, err
		}
	}

	token, err := NewToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	inv := &Invitation{
		ID:             uuid.NewString(),
		LibraryID:      libraryID,
		Email:          email,
		Role:           role,
		Type:           req.Type,
		TokenHash:      HashToken(token),
		Status:         StatusPending,
		InvitedBy:      actorID,
		InviterStaffID: inviter.ID,
		ExpiresAt:      now.Add(s.ttl),
		CreatedAt:      now,
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", email, apperror.ErrDuplicateInvitation)
		}
		return nil, err
	}

	s.logger.Info().
		Str("event", "invitation_issued").
		Str("library_id", libraryID).
		Str("actor_id", actorID).
		Str("invitation_id", inv.ID).
		Str("type", string(inv.Type)).
		Time("expires_at", inv.ExpiresAt).
		Msg("invitation issued")

	return &IssueResult{Invitation: inv, Token: token}, nil
}

// Get looks an invitation up by token. A stale pending invitation is
// expired first and returned in its expired state.
func (s *Service) Get(ctx context.Context, token string) (*Invitation, error) {
	inv, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.Stale(s.clock.Now()) {
		if err := s.expire(ctx, inv); err != nil {
			return nil, err
		}
		return s.reload(ctx, inv.ID)
	}
	return inv, nil
}

// List returns a library's invitations to staff who may issue them
func (s *Service) List(ctx context.Context, actorID, libraryID string) ([]*Invitation, error) {
	if _, err := s.engine.Require(ctx, actorID, libraryID, authz.PermManageStaff); err != nil {
		if !errors.Is(err, apperror.ErrPermissionDenied) {
			return nil, err
		}
		if _, err := s.engine.Require(ctx, actorID, libraryID, authz.PermManageMembers); err != nil {
			return nil, err
		}
	}

	invitations, err := s.repo.ListByLibrary(ctx, libraryID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	for i, inv := range invitations {
		if !inv.Stale(now) {
			continue
		}
		if err := s.expire(ctx, inv); err != nil {
			return nil, err
		}
		if invitations[i], err = s.reload(ctx, inv.ID); err != nil {
			return nil, err
		}
	}
	return invitations, nil
}

// Accept settles the invitation for actor and creates the staff membership
// or member record it offers. The actor's verified email must match the
// invited address. The record is created on behalf of the inviter, who must
// still hold the right to grant it.
func (s *Service) Accept(ctx context.Context, actor authz.Actor, token string) (*AcceptResult, error) {
	inv, err := s.pending(ctx, actor, token)
	if err != nil {
		return nil, err
	}

	result := &AcceptResult{}
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.Settle(ctx, inv.ID, StatusAccepted, s.clock.Now())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("invitation %s: %w", inv.ID, apperror.ErrAlreadyProcessed)
		}

		switch inv.Type {
		case TypeStaff:
			result.Staff, err = s.staff.Grant(ctx, tx, inv.InvitedBy, inv.LibraryID, actor.ID, *inv.Role)
		case TypeMember:
			result.Member, err = s.members.Enroll(ctx, tx, inv.InvitedBy, inv.LibraryID, actor.ID, inv.Email)
		}
		if err != nil {
			return err
		}

		result.Invitation, err = repo.GetByID(ctx, inv.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("event", "invitation_accepted").
		Str("library_id", inv.LibraryID).
		Str("actor_id", actor.ID).
		Str("invitation_id", inv.ID).
		Msg("invitation accepted")

	resp := &Response{InvitationID: inv.ID, Response: StatusAccepted, ActorID: &actor.ID}
	if result.Staff != nil {
		resp.StaffMembershipID = &result.Staff.ID
	}
	if result.Member != nil {
		resp.MemberRecordID = &result.Member.ID
	}
	auditErr := s.appendResponse(ctx, resp)

	s.notifier.TryNotify(ctx, inv.InvitedBy, inv.Email+" accepted your invitation", notification.EntityInvitation, inv.ID)
	return result, auditErr
}

// Decline settles the invitation without creating anything
func (s *Service) Decline(ctx context.Context, actor authz.Actor, token string) (*Invitation, error) {
	inv, err := s.pending(ctx, actor, token)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.Settle(ctx, inv.ID, StatusDeclined, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("invitation %s: %w", inv.ID, apperror.ErrAlreadyProcessed)
	}
	if inv, err = s.reload(ctx, inv.ID); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("event", "invitation_declined").
		Str("library_id", inv.LibraryID).
		Str("actor_id", actor.ID).
		Str("invitation_id", inv.ID).
		Msg("invitation declined")

	auditErr := s.appendResponse(ctx, &Response{InvitationID: inv.ID, Response: StatusDeclined, ActorID: &actor.ID})

	s.notifier.TryNotify(ctx, inv.InvitedBy, inv.Email+" declined your invitation", notification.EntityInvitation, inv.ID)
	return inv, auditErr
}

// pending loads the invitation for token and checks that actor may still
// respond to it
func (s *Service) pending(ctx context.Context, actor authz.Actor, token string) (*Invitation, error) {
	if actor.Anonymous() {
		return nil, fmt.Errorf("anonymous actor: %w", apperror.ErrPermissionDenied)
	}

	inv, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}

	if inv.Stale(s.clock.Now()) {
		if err := s.expire(ctx, inv); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("invitation %s: %w", inv.ID, apperror.ErrExpired)
	}
	switch inv.Status {
	case StatusPending:
	case StatusExpired:
		return nil, fmt.Errorf("invitation %s: %w", inv.ID, apperror.ErrExpired)
	default:
		return nil, fmt.Errorf("invitation %s is %s: %w", inv.ID, inv.Status, apperror.ErrAlreadyProcessed)
	}

	if !actor.EmailVerified || !strings.EqualFold(strings.TrimSpace(actor.Email), inv.Email) {
		return nil, apperror.ErrEmailMismatch
	}
	return inv, nil
}

// expire moves a stale pending invitation to expired and records it. An
// invitation settled concurrently is left alone.
func (s *Service) expire(ctx context.Context, inv *Invitation) error {
	now := s.clock.Now()
	ok, err := s.repo.Settle(ctx, inv.ID, StatusExpired, now)
	if err != nil || !ok {
		return err
	}

	s.logger.Info().
		Str("event", "invitation_expired").
		Str("library_id", inv.LibraryID).
		Str("invitation_id", inv.ID).
		Msg("invitation expired")

	// the expiry itself stands even if its response row is lost
	_ = s.appendResponse(ctx, &Response{InvitationID: inv.ID, Response: StatusExpired})
	return nil
}

func (s *Service) appendResponse(ctx context.Context, resp *Response) error {
	resp.ID = uuid.NewString()
	resp.CreatedAt = s.clock.Now()

	if err := s.repo.AppendResponse(ctx, resp); err != nil {
		s.logger.Error().
			Err(err).
			Str("event", "audit_incomplete").
			Str("invitation_id", resp.InvitationID).
			Str("response", string(resp.Response)).
			Msg("invitation settled without its response row")
		return apperror.NewAuditError(string(resp.Response)+" response", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, token string) (*Invitation, error) {
	if token == "" {
		return nil, fmt.Errorf("invitation: %w", apperror.ErrNotFound)
	}
	inv, err := s.repo.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("invitation: %w", apperror.ErrNotFound)
	}
	return inv, nil
}

func (s *Service) reload(ctx context.Context, id string) (*Invitation, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("invitation: %w", apperror.ErrNotFound)
	}
	return inv, nil
}
