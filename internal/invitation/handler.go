package invitation

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/librarycore/pkg/middleware"
	"github.com/fkhayef/librarycore/pkg/response"
)

// Handler handles HTTP requests for invitation operations
type Handler struct {
	service *Service
}

// NewHandler creates a new invitation handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// LibraryRoutes returns the router for /libraries/{libraryId}/invitations
func (h *Handler) LibraryRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Issue)
	r.Get("/", h.List)

	return r
}

// Routes returns the router for /invitations
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{token}", h.Get)
	r.Post("/{token}/accept", h.Accept)
	r.Post("/{token}/decline", h.Decline)

	return r
}

// Issue handles POST /libraries/{libraryId}/invitations
// @Summary      Invite someone into a library
// @Description  The token is returned only in this response
// @Tags         invitations
// @Accept       json
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        request body IssueRequest true "Invitation"
// @Success      201 {object} response.APIResponse{data=IssueResult}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /libraries/{libraryId}/invitations [post]
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var req IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	result, err := h.service.Issue(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), &req)
	if err != nil {
		response.FromError(w, err, "Failed to issue invitation")
		return
	}

	response.JSON(w, http.StatusCreated, result)
}

// List handles GET /libraries/{libraryId}/invitations
// @Summary      List invitations
// @Tags         invitations
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Success      200 {object} response.APIResponse{data=[]Invitation}
// @Router       /libraries/{libraryId}/invitations [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	invitations, err := h.service.List(r.Context(), actor.ID, chi.URLParam(r, "libraryId"))
	if err != nil {
		response.FromError(w, err, "Failed to list invitations")
		return
	}

	response.JSON(w, http.StatusOK, invitations)
}

// Get handles GET /invitations/{token}
// @Summary      Look up an invitation
// @Tags         invitations
// @Produce      json
// @Param        token path string true "Invitation token"
// @Success      200 {object} response.APIResponse{data=Invitation}
// @Failure      404 {object} response.APIResponse
// @Router       /invitations/{token} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Get(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		response.FromError(w, err, "Failed to get invitation")
		return
	}

	response.JSON(w, http.StatusOK, inv)
}

// Accept handles POST /invitations/{token}/accept
// @Summary      Accept an invitation
// @Tags         invitations
// @Produce      json
// @Param        token path string true "Invitation token"
// @Success      200 {object} response.APIResponse{data=AcceptResult}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Failure      410 {object} response.APIResponse
// @Router       /invitations/{token}/accept [post]
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	result, err := h.service.Accept(r.Context(), actor, chi.URLParam(r, "token"))
	response.Result(w, http.StatusOK, result, err, "Failed to accept invitation")
}

// Decline handles POST /invitations/{token}/decline
// @Summary      Decline an invitation
// @Tags         invitations
// @Produce      json
// @Param        token path string true "Invitation token"
// @Success      200 {object} response.APIResponse{data=Invitation}
// @Failure      409 {object} response.APIResponse
// @Failure      410 {object} response.APIResponse
// @Router       /invitations/{token}/decline [post]
func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	inv, err := h.service.Decline(r.Context(), actor, chi.URLParam(r, "token"))
	response.Result(w, http.StatusOK, inv, err, "Failed to decline invitation")
}
