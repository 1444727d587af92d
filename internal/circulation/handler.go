package circulation

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/librarycore/pkg/middleware"
	"github.com/fkhayef/librarycore/pkg/response"
)

// Handler handles HTTP requests for borrowing transactions
type Handler struct {
	service *Service
}

// NewHandler creates a new circulation handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// LibraryRoutes returns the router for /libraries/{libraryId}/transactions
func (h *Handler) LibraryRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Checkout)
	r.Get("/", h.List)

	return r
}

// Routes returns the router for /transactions
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{txId}", h.GetByID)
	r.Get("/{txId}/events", h.ListEvents)
	r.Post("/{txId}/return", h.transition(h.service.Return, "Failed to return transaction"))
	r.Post("/{txId}/overdue", h.transition(h.service.MarkOverdue, "Failed to mark transaction overdue"))
	r.Post("/{txId}/lost", h.transition(h.service.MarkLost, "Failed to mark transaction lost"))
	r.Post("/{txId}/cancel", h.transition(h.service.Cancel, "Failed to cancel transaction"))
	r.Post("/{txId}/renew", h.Renew)
	r.Post("/{txId}/fees", h.AssessLateFee)
	r.Post("/{txId}/payments", h.RecordFeePayment)

	return r
}

// Checkout handles POST /libraries/{libraryId}/transactions
// @Summary      Check out a copy
// @Description  A repeated request_id replays the original transaction
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        request body CheckoutRequest true "Checkout"
// @Success      201 {object} response.APIResponse{data=CheckoutResult}
// @Success      200 {object} response.APIResponse{data=CheckoutResult}
// @Failure      409 {object} response.APIResponse
// @Router       /libraries/{libraryId}/transactions [post]
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	result, err := h.service.Checkout(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), &req)
	status := http.StatusCreated
	if result != nil && result.Replayed {
		status = http.StatusOK
	}
	response.Result(w, status, result, err, "Failed to check out copy")
}

// List handles GET /libraries/{libraryId}/transactions
// @Summary      List transactions
// @Tags         transactions
// @Produce      json
// @Param        libraryId path string true "Library ID"
// @Param        status query string false "Filter by status"
// @Success      200 {object} response.APIResponse{data=[]Transaction}
// @Router       /libraries/{libraryId}/transactions [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	txs, err := h.service.List(r.Context(), actor.ID, chi.URLParam(r, "libraryId"), Status(r.URL.Query().Get("status")))
	if err != nil {
		response.FromError(w, err, "Failed to list transactions")
		return
	}

	response.JSON(w, http.StatusOK, txs)
}

// GetByID handles GET /transactions/{txId}
// @Summary      Get transaction
// @Tags         transactions
// @Produce      json
// @Param        txId path string true "Transaction ID"
// @Success      200 {object} response.APIResponse{data=Transaction}
// @Failure      404 {object} response.APIResponse
// @Router       /transactions/{txId} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	t, err := h.service.Get(r.Context(), actor.ID, chi.URLParam(r, "txId"))
	if err != nil {
		response.FromError(w, err, "Failed to get transaction")
		return
	}

	response.JSON(w, http.StatusOK, t)
}

// ListEvents handles GET /transactions/{txId}/events
// @Summary      Transaction audit trail
// @Tags         transactions
// @Produce      json
// @Param        txId path string true "Transaction ID"
// @Success      200 {object} response.APIResponse{data=EventsResponse}
// @Router       /transactions/{txId}/events [get]
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	events, fees, err := h.service.ListEvents(r.Context(), actor.ID, chi.URLParam(r, "txId"))
	if err != nil {
		response.FromError(w, err, "Failed to list events")
		return
	}

	response.JSON(w, http.StatusOK, &EventsResponse{Events: events, Fees: fees})
}

// transition adapts a status transition to a handler. The routes it serves:
// @Summary      Transition a transaction
// @Tags         transactions
// @Produce      json
// @Param        txId path string true "Transaction ID"
// @Success      200 {object} response.APIResponse{data=TransitionResult}
// @Failure      409 {object} response.APIResponse
// @Router       /transactions/{txId}/return [post]
// @Router       /transactions/{txId}/overdue [post]
// @Router       /transactions/{txId}/lost [post]
// @Router       /transactions/{txId}/cancel [post]
func (h *Handler) transition(fn func(ctx context.Context, actorID, id string) (*TransitionResult, error), fallback string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r.Context())

		result, err := fn(r.Context(), actor.ID, chi.URLParam(r, "txId"))
		response.Result(w, http.StatusOK, result, err, fallback)
	}
}

// Renew handles POST /transactions/{txId}/renew
// @Summary      Renew a loan
// @Tags         transactions
// @Produce      json
// @Param        txId path string true "Transaction ID"
// @Success      200 {object} response.APIResponse{data=Transaction}
// @Failure      422 {object} response.APIResponse
// @Router       /transactions/{txId}/renew [post]
func (h *Handler) Renew(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	t, err := h.service.Renew(r.Context(), actor.ID, chi.URLParam(r, "txId"))
	response.Result(w, http.StatusOK, t, err, "Failed to renew transaction")
}

// AssessLateFee handles POST /transactions/{txId}/fees
// @Summary      Assess late fee
// @Tags         transactions
// @Produce      json
// @Param        txId path string true "Transaction ID"
// @Success      201 {object} response.APIResponse{data=FeeSummary}
// @Failure      409 {object} response.APIResponse
// @Router       /transactions/{txId}/fees [post]
func (h *Handler) AssessLateFee(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	summary, err := h.service.AssessLateFee(r.Context(), actor.ID, chi.URLParam(r, "txId"))
	if err != nil {
		response.FromError(w, err, "Failed to assess late fee")
		return
	}

	response.JSON(w, http.StatusCreated, summary)
}

// RecordFeePayment handles POST /transactions/{txId}/payments
// @Summary      Record fee payment
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        txId path string true "Transaction ID"
// @Param        request body PaymentRequest true "Payment"
// @Success      201 {object} response.APIResponse{data=FeeSummary}
// @Failure      400 {object} response.APIResponse
// @Router       /transactions/{txId}/payments [post]
func (h *Handler) RecordFeePayment(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	summary, err := h.service.RecordFeePayment(r.Context(), actor.ID, chi.URLParam(r, "txId"), req.Amount)
	if err != nil {
		response.FromError(w, err, "Failed to record payment")
		return
	}

	response.JSON(w, http.StatusCreated, summary)
}
