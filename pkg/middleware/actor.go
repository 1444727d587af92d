package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/fkhayef/librarycore/internal/authz"
	"github.com/fkhayef/librarycore/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ActorKey is the context key for the authenticated actor
	ActorKey ContextKey = "actor"
)

// Headers set by the fronting authentication layer
const (
	HeaderActorID            = "X-Actor-ID"
	HeaderActorEmail         = "X-Actor-Email"
	HeaderActorEmailVerified = "X-Actor-Email-Verified"
)

// ActorMiddleware reads the actor identity forwarded by the auth proxy.
// Requests without an actor id continue anonymously.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderActorID))
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		verified, _ := strconv.ParseBool(r.Header.Get(HeaderActorEmailVerified))
		actor := authz.Actor{
			ID:            id,
			Email:         strings.TrimSpace(r.Header.Get(HeaderActorEmail)),
			EmailVerified: verified,
		}

		ctx := WithActor(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireActor rejects anonymous requests
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetActor(r.Context()); !ok {
			response.Unauthorized(w, "Actor identity required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithActor stores the actor in ctx
func WithActor(ctx context.Context, actor authz.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor extracts the actor from the request context
func GetActor(ctx context.Context) (authz.Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(authz.Actor)
	if !ok || actor.Anonymous() {
		return authz.Actor{}, false
	}
	return actor, true
}
