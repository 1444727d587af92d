package member

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/librarycore/pkg/middleware"
	"github.com/fkhayef/librarycore/pkg/response"
)

// Handler handles HTTP requests for member operations
type Handler struct {
	service *Service
}

// NewHandler creates a new member handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for /libraries/{libraryId}/members
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{memberId}", h.GetByID)

	return r
}

// Create handles POST /libraries/{libraryId}/members
// @Summary      Register a member
// @Tags         members
// @Accept       json
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        request body CreateMemberRequest true "Member"
// @Success      201 {object} response.APIResponse{data=MemberResponse}
// @Failure      409 {object} response.APIResponse
// @Router       /libraries/{libraryId}/members [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var req CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	m, err := h.service.Create(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), &req)
	if err != nil {
		response.FromError(w, err, "Failed to create member")
		return
	}

	response.JSON(w, http.StatusCreated, m.ToResponse())
}

// List handles GET /libraries/{libraryId}/members
// @Summary      List members
// @Tags         members
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Success      200 {object} response.APIResponse{data=[]MemberResponse}
// @Router       /libraries/{libraryId}/members [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	members, err := h.service.List(r.Context(), actor.ID, chi.URLParam(r, "libraryId"))
	if err != nil {
		response.FromError(w, err, "Failed to list members")
		return
	}

	resp := make([]*MemberResponse, len(members))
	for i, m := range members {
		resp[i] = m.ToResponse()
	}
	response.JSON(w, http.StatusOK, resp)
}

// GetByID handles GET /libraries/{libraryId}/members/{memberId}
// @Summary      Get member
// @Tags         members
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        memberId path string true "Member ID"
// @Success      200 {object} response.APIResponse{data=MemberResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /libraries/{libraryId}/members/{memberId} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	m, err := h.service.Get(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), chi.URLParam(r, "memberId"))
	if err != nil {
		response.FromError(w, err, "Failed to get member")
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}
