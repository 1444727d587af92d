package inventory

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/librarycore/pkg/middleware"
	"github.com/fkhayef/librarycore/pkg/response"
)

// Handler handles HTTP requests for copy operations
type Handler struct {
	service *Service
}

// NewHandler creates a new inventory handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for /libraries/{libraryId}/copies
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{copyId}", h.GetByID)
	r.Put("/{copyId}/status", h.SetStatus)

	return r
}

// Create handles POST /libraries/{libraryId}/copies
// @Summary      Add a copy
// @Tags         copies
// @Accept       json
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        request body CreateCopyRequest true "Copy"
// @Success      201 {object} response.APIResponse{data=CopyResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /libraries/{libraryId}/copies [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var req CreateCopyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	c, err := h.service.Create(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), &req)
	if err != nil {
		response.FromError(w, err, "Failed to create copy")
		return
	}

	response.JSON(w, http.StatusCreated, c.ToResponse())
}

// List handles GET /libraries/{libraryId}/copies
// @Summary      List copies
// @Tags         copies
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        availability query string false "available or borrowed"
// @Success      200 {object} response.APIResponse{data=[]CopyResponse}
// @Router       /libraries/{libraryId}/copies [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	availability := Availability(r.URL.Query().Get("availability"))

	copies, err := h.service.List(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), availability)
	if err != nil {
		response.FromError(w, err, "Failed to list copies")
		return
	}

	resp := make([]*CopyResponse, len(copies))
	for i, c := range copies {
		resp[i] = c.ToResponse()
	}
	response.JSON(w, http.StatusOK, resp)
}

// GetByID handles GET /libraries/{libraryId}/copies/{copyId}
// @Summary      Get copy
// @Tags         copies
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        copyId path string true "Copy ID"
// @Success      200 {object} response.APIResponse{data=CopyResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /libraries/{libraryId}/copies/{copyId} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	c, err := h.service.Get(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), chi.URLParam(r, "copyId"))
	if err != nil {
		response.FromError(w, err, "Failed to get copy")
		return
	}

	response.JSON(w, http.StatusOK, c.ToResponse())
}

// SetStatus handles PUT /libraries/{libraryId}/copies/{copyId}/status
// @Summary      Change copy status
// @Tags         copies
// @Accept       json
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        copyId path string true "Copy ID"
// @Param        request body SetStatusRequest true "Status"
// @Success      200 {object} response.APIResponse{data=CopyResponse}
// @Failure      409 {object} response.APIResponse
// @Router       /libraries/{libraryId}/copies/{copyId}/status [put]
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	c, err := h.service.SetStatus(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), chi.URLParam(r, "copyId"), req.Status)
	if err != nil {
		response.FromError(w, err, "Failed to update copy status")
		return
	}

	response.JSON(w, http.StatusOK, c.ToResponse())
}
