// Package authz is the authorization engine every library component calls
// before it writes. It answers three questions: an actor's effective role in
// a library, whether the actor may write the shared catalog, and which
// libraries the actor staffs.
package authz

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/fkhayef/librarycore/internal/apperror"
)

// Engine evaluates role-based, library-scoped access decisions
type Engine struct {
	repo   *Repository
	logger zerolog.Logger
}

// NewEngine creates a new authorization engine
func NewEngine(repo *Repository, logger zerolog.Logger) *Engine {
	return &Engine{
		repo:   repo,
		logger: logger.With().Str("component", "authz").Logger(),
	}
}

// MembershipOf returns the actor's membership in the library when it grants
// an effective role, or nil when the actor has no say there.
func (e *Engine) MembershipOf(ctx context.Context, actorID, libraryID string) (*Membership, error) {
	if actorID == "" || libraryID == "" {
		return nil, nil
	}

	m, err := e.repo.FindMembership(ctx, actorID, libraryID)
	if err != nil {
		return nil, err
	}
	if m.EffectiveRole() == RoleNone {
		return nil, nil
	}
	return m, nil
}

// RoleOf returns the actor's effective role in the library, RoleNone when
// there is none
func (e *Engine) RoleOf(ctx context.Context, actorID, libraryID string) (Role, error) {
	m, err := e.MembershipOf(ctx, actorID, libraryID)
	if err != nil || m == nil {
		return RoleNone, err
	}
	return m.Role, nil
}

// HasCatalogAccess reports whether the actor holds owner, manager or
// librarian in any library. Catalog content is global, so the check is not
// scoped to a library.
func (e *Engine) HasCatalogAccess(ctx context.Context, actorID string) (bool, error) {
	if actorID == "" {
		return false, nil
	}

	memberships, err := e.repo.ListMemberships(ctx, actorID)
	if err != nil {
		return false, err
	}
	for _, m := range memberships {
		role := m.EffectiveRole()
		for _, allowed := range catalogRoles {
			if role == allowed {
				return true, nil
			}
		}
	}
	return false, nil
}

// LibraryIDsOf returns the libraries where the actor has a live staff role,
// for pre-filtering scoped listings
func (e *Engine) LibraryIDsOf(ctx context.Context, actorID string) ([]string, error) {
	if actorID == "" {
		return []string{}, nil
	}

	memberships, err := e.repo.ListMemberships(ctx, actorID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		if m.EffectiveRole() != RoleNone {
			ids = append(ids, m.LibraryID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Require returns the actor's membership if its role carries perm, and
// ErrPermissionDenied otherwise
func (e *Engine) Require(ctx context.Context, actorID, libraryID string, perm Permission) (*Membership, error) {
	m, err := e.MembershipOf(ctx, actorID, libraryID)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.Role.Can(perm) {
		e.logger.Debug().
			Str("event", "authz_denied").
			Str("actor_id", actorID).
			Str("library_id", libraryID).
			Str("permission", string(perm)).
			Msg("permission denied")
		return nil, apperror.ErrPermissionDenied
	}
	return m, nil
}

// RequireCatalogAccess returns ErrPermissionDenied unless the actor may
// write the shared catalog
func (e *Engine) RequireCatalogAccess(ctx context.Context, actorID string) error {
	ok, err := e.HasCatalogAccess(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		e.logger.Debug().
			Str("event", "authz_catalog_denied").
			Str("actor_id", actorID).
			Msg("catalog access denied")
		return apperror.ErrPermissionDenied
	}
	return nil
}
