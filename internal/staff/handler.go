package staff

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/librarycore/pkg/middleware"
	"github.com/fkhayef/librarycore/pkg/response"
)

// Handler handles HTTP requests for staff operations
type Handler struct {
	service *Service
}

// NewHandler creates a new staff handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for /libraries/{libraryId}/staff
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{staffId}", h.GetByID)
	r.Put("/{staffId}/role", h.ChangeRole)
	r.Put("/{staffId}/active", h.SetActive)

	return r
}

// List handles GET /libraries/{libraryId}/staff
// @Summary      List staff
// @Description  List the live staff memberships of a library
// @Tags         staff
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Success      200 {object} response.APIResponse{data=[]StaffResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /libraries/{libraryId}/staff [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	memberships, err := h.service.List(r.Context(), actor.ID, chi.URLParam(r, "libraryId"))
	if err != nil {
		response.FromError(w, err, "Failed to list staff")
		return
	}

	resp := make([]*StaffResponse, len(memberships))
	for i, m := range memberships {
		resp[i] = m.ToResponse()
	}
	response.JSON(w, http.StatusOK, resp)
}

// GetByID handles GET /libraries/{libraryId}/staff/{staffId}
// @Summary      Get staff membership
// @Tags         staff
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        staffId path string true "Staff membership ID"
// @Success      200 {object} response.APIResponse{data=StaffResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /libraries/{libraryId}/staff/{staffId} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	m, err := h.service.Get(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), chi.URLParam(r, "staffId"))
	if err != nil {
		response.FromError(w, err, "Failed to get staff membership")
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}

// ChangeRole handles PUT /libraries/{libraryId}/staff/{staffId}/role
// @Summary      Change staff role
// @Description  Owners only. The last active owner cannot be demoted.
// @Tags         staff
// @Accept       json
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        staffId path string true "Staff membership ID"
// @Param        request body ChangeRoleRequest true "New role"
// @Success      200 {object} response.APIResponse{data=StaffResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /libraries/{libraryId}/staff/{staffId}/role [put]
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var req ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	m, err := h.service.ChangeRole(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), chi.URLParam(r, "staffId"), req.Role)
	if err != nil {
		response.FromError(w, err, "Failed to change role")
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}

// SetActive handles PUT /libraries/{libraryId}/staff/{staffId}/active
// @Summary      Suspend or reactivate staff
// @Tags         staff
// @Accept       json
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        staffId path string true "Staff membership ID"
// @Param        request body SetActiveRequest true "Activity flag"
// @Success      200 {object} response.APIResponse{data=StaffResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /libraries/{libraryId}/staff/{staffId}/active [put]
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	m, err := h.service.SetActive(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), chi.URLParam(r, "staffId"), req.IsActive)
	if err != nil {
		response.FromError(w, err, "Failed to update staff membership")
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}
