package receipts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lattice-ops/lattice/internal/platform/httpx"
)

// Handler manages receipt endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers receipt routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.listByOrder)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.remove)
	r.Get("/match/{orderID}", h.match)
}

type createRequest struct {
	OrderID     int64  `json:"orderId" validate:"required,gt=0"`
	Reference   string `json:"reference" validate:"required"`
	AmountCents int64  `json:"amountCents" validate:"required,gt=0"`
	ReceivedAt  string `json:"receivedAt" validate:"omitempty"`
	Note        string `json:"note"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateInput{
		OrderID:     req.OrderID,
		Reference:   req.Reference,
		AmountCents: req.AmountCents,
		ReceivedBy:  actorID(r),
		Note:        req.Note,
	}
	if req.ReceivedAt != "" {
		at, err := time.Parse(time.RFC3339, req.ReceivedAt)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "receivedAt must be RFC3339")
			return
		}
		input.ReceivedAt = at
	}
	receipt, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, "create receipt", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid receipt id")
		return
	}
	receipt, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get receipt", err)
		return
	}
	httpx.JSON(w, http.StatusOK, receipt)
}

func (h *Handler) listByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, _ := strconv.ParseInt(r.URL.Query().Get("order_id"), 10, 64)
	if orderID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "order_id is required")
		return
	}
	receipts, err := h.service.ListByOrder(r.Context(), orderID)
	if err != nil {
		h.respondError(w, "list receipts", err)
		return
	}
	if receipts == nil {
		receipts = []Receipt{}
	}
	httpx.JSON(w, http.StatusOK, receipts)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid receipt id")
		return
	}
	if err := h.service.Delete(r.Context(), id, actorID(r)); err != nil {
		h.respondError(w, "delete receipt", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) match(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	result, err := h.service.MatchOrder(r.Context(), orderID)
	if err != nil {
		h.respondError(w, "match order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrOrderNotReceivable):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
