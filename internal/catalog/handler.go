package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/librarycore/pkg/middleware"
	"github.com/fkhayef/librarycore/pkg/response"
)

// Handler handles HTTP requests for catalog operations
type Handler struct {
	service *Service
}

// NewHandler creates a new catalog handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for /editions
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Put("/isbn/{isbn}", h.UpsertByISBN)

	return r
}

// Create handles POST /editions
// @Summary      Create an edition
// @Description  Requires catalog access (owner, manager or librarian anywhere)
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        request body EditionRequest true "Edition"
// @Success      201 {object} response.APIResponse{data=EditionResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /editions [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var req EditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	e, err := h.service.Create(r.Context(), actor.ID, &req)
	if err != nil {
		response.FromError(w, err, "Failed to create edition")
		return
	}

	response.JSON(w, http.StatusCreated, e.ToResponse())
}

// UpsertByISBN handles PUT /editions/isbn/{isbn}
// @Summary      Upsert an edition by ISBN
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        isbn path string true "ISBN-10 or ISBN-13"
// @Param        request body EditionRequest true "Edition"
// @Success      200 {object} response.APIResponse{data=UpsertResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /editions/isbn/{isbn} [put]
func (h *Handler) UpsertByISBN(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var req EditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	e, created, err := h.service.UpsertByISBN(r.Context(), actor.ID, chi.URLParam(r, "isbn"), &req)
	if err != nil {
		response.FromError(w, err, "Failed to upsert edition")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(w, status, &UpsertResponse{Edition: e.ToResponse(), Created: created})
}

// GetByID handles GET /editions/{id}
// @Summary      Get an edition
// @Tags         catalog
// @Produce      json
// @Param        id path string true "Edition ID"
// @Success      200 {object} response.APIResponse{data=EditionResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /editions/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, err, "Failed to get edition")
		return
	}

	response.JSON(w, http.StatusOK, e.ToResponse())
}

// List handles GET /editions
// @Summary      List editions
// @Tags         catalog
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]EditionResponse}
// @Router       /editions [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	editions, total, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		response.FromError(w, err, "Failed to list editions")
		return
	}

	resp := make([]*EditionResponse, len(editions))
	for i, e := range editions {
		resp[i] = e.ToResponse()
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, resp, meta)
}
