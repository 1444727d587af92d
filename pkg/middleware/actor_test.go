package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActorMiddlewareReadsHeaders(t *testing.T) {
	var got struct {
		id       string
		email    string
		verified bool
		ok       bool
	}
	h := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		got.id, got.email, got.verified, got.ok = actor.ID, actor.Email, actor.EmailVerified, ok
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderActorID, "actor-1")
	req.Header.Set(HeaderActorEmail, "x@y.com")
	req.Header.Set(HeaderActorEmailVerified, "true")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, got.ok)
	assert.Equal(t, "actor-1", got.id)
	assert.Equal(t, "x@y.com", got.email)
	assert.True(t, got.verified)
}

func TestRequireActorRejectsAnonymous(t *testing.T) {
	h := ActorMiddleware(RequireActor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderActorID, "actor-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
