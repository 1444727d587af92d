package library

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/librarycore/pkg/middleware"
	"github.com/fkhayef/librarycore/pkg/response"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := newService(t)
	r := chi.NewRouter()
	r.Use(middleware.ActorMiddleware)
	r.Mount("/libraries", NewHandler(svc).Routes())
	return r
}

func do(t *testing.T, h http.Handler, method, path, actor, body string) (*httptest.ResponseRecorder, response.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if actor != "" {
		req.Header.Set(middleware.HeaderActorID, actor)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHandlerLifecycle(t *testing.T) {
	h := newRouter(t)

	rec, resp := do(t, h, http.MethodPost, "/libraries", "founder", `{"name":"Harbor"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	id := data["library"].(map[string]any)["id"].(string)
	assert.Equal(t, "owner", data["owner"].(map[string]any)["role"])

	rec, _ = do(t, h, http.MethodPut, "/libraries/"+id+"/status", "intruder", `{"status":"inactive"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, h, http.MethodPut, "/libraries/"+id+"/status", "founder", `{"status":"inactive"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = do(t, h, http.MethodGet, "/libraries/"+id, "intruder", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = do(t, h, http.MethodPost, "/libraries", "founder", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
