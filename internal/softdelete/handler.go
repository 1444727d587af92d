package softdelete

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/librarycore/pkg/middleware"
	"github.com/fkhayef/librarycore/pkg/response"
)

// Handler exposes delete, restore and the deleted listing for one
// collection's router
type Handler struct {
	service *Service
}

// NewHandler creates a new soft-delete handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Mount adds the tombstone endpoints for c to a collection router
func (h *Handler) Mount(r chi.Router, c Collection) {
	r.Get("/deleted", h.listDeleted(c))
	r.Delete("/{rowId}", h.delete(c))
	r.Post("/{rowId}/restore", h.restore(c))
}

// delete handles DELETE /libraries/{libraryId}/{collection}/{rowId}
// @Summary      Soft-delete a row
// @Description  Tombstones a staff membership, member record or copy
// @Tags         softdelete
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        collection path string true "staff, members or copies"
// @Param        rowId path string true "Row ID"
// @Success      200 {object} response.APIResponse{data=Record}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /libraries/{libraryId}/{collection}/{rowId} [delete]
func (h *Handler) delete(c Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r.Context())

		record, err := h.service.Delete(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), c, chi.URLParam(r, "rowId"))
		if err != nil {
			response.FromError(w, err, "Failed to delete")
			return
		}

		response.JSON(w, http.StatusOK, record)
	}
}

// restore handles POST /libraries/{libraryId}/{collection}/{rowId}/restore
// @Summary      Restore a soft-deleted row
// @Tags         softdelete
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        collection path string true "staff, members or copies"
// @Param        rowId path string true "Row ID"
// @Success      200 {object} response.APIResponse{data=Record}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /libraries/{libraryId}/{collection}/{rowId}/restore [post]
func (h *Handler) restore(c Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r.Context())

		record, err := h.service.Restore(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), c, chi.URLParam(r, "rowId"))
		if err != nil {
			response.FromError(w, err, "Failed to restore")
			return
		}

		response.JSON(w, http.StatusOK, record)
	}
}

// listDeleted handles GET /libraries/{libraryId}/{collection}/deleted
// @Summary      List soft-deleted rows
// @Tags         softdelete
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        collection path string true "staff, members or copies"
// @Success      200 {object} response.APIResponse{data=[]Record}
// @Router       /libraries/{libraryId}/{collection}/deleted [get]
func (h *Handler) listDeleted(c Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r.Context())

		records, err := h.service.ListDeleted(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), c)
		if err != nil {
			response.FromError(w, err, "Failed to list deleted rows")
			return
		}

		response.JSON(w, http.StatusOK, records)
	}
}
