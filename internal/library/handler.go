package library

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/librarycore/pkg/middleware"
	"github.com/fkhayef/librarycore/pkg/response"
)

// Handler handles HTTP requests for library operations
type Handler struct {
	service *Service
}

// NewHandler creates a new library handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for library endpoints. Scoped feature routers
// are mounted under /{libraryId} by the caller.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

// Register adds the library endpoints to r
func (h *Handler) Register(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{libraryId}", h.GetByID)
	r.Put("/{libraryId}/settings", h.UpdateSettings)
	r.Put("/{libraryId}/status", h.SetStatus)
}

// Create handles POST /libraries
// @Summary      Register a library
// @Description  Create a library; the caller becomes its owner
// @Tags         libraries
// @Accept       json
// @Produce      json
// @Param        request body CreateLibraryRequest true "Library registration"
// @Success      201 {object} response.APIResponse{data=CreateLibraryResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /libraries [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var req CreateLibraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	lib, owner, err := h.service.Create(r.Context(), actor.ID, &req)
	if err != nil {
		response.FromError(w, err, "Failed to create library")
		return
	}

	response.JSON(w, http.StatusCreated, &CreateLibraryResponse{
		Library: lib.ToResponse(),
		Owner:   owner.ToResponse(),
	})
}

// List handles GET /libraries
// @Summary      List libraries
// @Description  Active libraries plus those the caller staffs
// @Tags         libraries
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]LibraryResponse}
// @Router       /libraries [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	libraries, err := h.service.List(r.Context(), actor.ID)
	if err != nil {
		response.FromError(w, err, "Failed to list libraries")
		return
	}

	resp := make([]*LibraryResponse, len(libraries))
	for i, l := range libraries {
		resp[i] = l.ToResponse()
	}
	response.JSON(w, http.StatusOK, resp)
}

// GetByID handles GET /libraries/{libraryId}
// @Summary      Get library
// @Tags         libraries
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Success      200 {object} response.APIResponse{data=LibraryResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /libraries/{libraryId} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	lib, err := h.service.Get(r.Context(), actor.ID, chi.URLParam(r, "libraryId"))
	if err != nil {
		response.FromError(w, err, "Failed to get library")
		return
	}

	response.JSON(w, http.StatusOK, lib.ToResponse())
}

// UpdateSettings handles PUT /libraries/{libraryId}/settings
// @Summary      Update library settings
// @Tags         libraries
// @Accept       json
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        request body UpdateSettingsRequest true "Settings"
// @Success      200 {object} response.APIResponse{data=LibraryResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /libraries/{libraryId}/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	lib, err := h.service.UpdateSettings(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), &req)
	if err != nil {
		response.FromError(w, err, "Failed to update settings")
		return
	}

	response.JSON(w, http.StatusOK, lib.ToResponse())
}

// SetStatus handles PUT /libraries/{libraryId}/status
// @Summary      Change library status
// @Description  Owners only; deactivation hides the library from non-staff
// @Tags         libraries
// @Accept       json
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        request body SetStatusRequest true "Status"
// @Success      200 {object} response.APIResponse{data=LibraryResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /libraries/{libraryId}/status [put]
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	lib, err := h.service.SetStatus(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), req.Status)
	if err != nil {
		response.FromError(w, err, "Failed to update status")
		return
	}

	response.JSON(w, http.StatusOK, lib.ToResponse())
}
