package authz

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/librarycore/pkg/response"
)

// ActorFunc extracts the calling actor from a request context
type ActorFunc func(ctx context.Context) (Actor, bool)

// Handler exposes authorization decisions for the calling actor
type Handler struct {
	engine *Engine
	actor  ActorFunc
}

// NewHandler creates a new authorization handler
func NewHandler(engine *Engine, actor ActorFunc) *Handler {
	return &Handler{engine: engine, actor: actor}
}

// RoleResponse is the result of an Authorize call
type RoleResponse struct {
	LibraryID string `json:"library_id"`
	Role      *Role  `json:"role"`
}

// Routes returns the router for /me endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/catalog-access", h.CatalogAccess)
	r.Get("/libraries", h.Libraries)
	r.Get("/libraries/{id}/role", h.Authorize)

	return r
}

// Authorize handles GET /me/libraries/{id}/role
// @Summary      Effective role
// @Description  Returns the caller's effective role in a library, or null
// @Tags         authz
// @Produce      json
// @Param        id path string true "Library ID"
// @Success      200 {object} response.APIResponse{data=RoleResponse}
// @Router       /me/libraries/{id}/role [get]
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	actor, _ := h.actor(r.Context())
	libraryID := chi.URLParam(r, "id")

	role, err := h.engine.RoleOf(r.Context(), actor.ID, libraryID)
	if err != nil {
		response.InternalError(w, "Failed to resolve role")
		return
	}

	resp := RoleResponse{LibraryID: libraryID}
	if role != RoleNone {
		resp.Role = &role
	}
	response.JSON(w, http.StatusOK, resp)
}

// CatalogAccess handles GET /me/catalog-access
func (h *Handler) CatalogAccess(w http.ResponseWriter, r *http.Request) {
	actor, _ := h.actor(r.Context())

	ok, err := h.engine.HasCatalogAccess(r.Context(), actor.ID)
	if err != nil {
		response.InternalError(w, "Failed to resolve catalog access")
		return
	}

	response.JSON(w, http.StatusOK, map[string]bool{"catalog_access": ok})
}

// Libraries handles GET /me/libraries
func (h *Handler) Libraries(w http.ResponseWriter, r *http.Request) {
	actor, _ := h.actor(r.Context())

	ids, err := h.engine.LibraryIDsOf(r.Context(), actor.ID)
	if err != nil {
		response.InternalError(w, "Failed to list libraries")
		return
	}

	response.JSON(w, http.StatusOK, map[string][]string{"library_ids": ids})
}
