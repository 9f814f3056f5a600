package purchasing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lattice-ops/lattice/internal/platform/httpx"
)

// Handler manages purchasing endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers purchasing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Route("/orders/{id}", func(r chi.Router) {
		r.Get("/", h.getOrder)
		r.Post("/submit", h.submit)
		r.Post("/approve", h.approve)
		r.Post("/reject", h.reject)
		r.Post("/reopen", h.reopen)
		r.Post("/complete", h.complete)
		r.Post("/cancel", h.cancel)
	})
}

type lineItemRequest struct {
	BudgetLineID int64  `json:"budgetLineId" validate:"required,gt=0"`
	Description  string `json:"description" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
	UnitCents    int64  `json:"unitCents" validate:"min=0"`
}

type createOrderRequest struct {
	Number     string            `json:"number"`
	VendorName string            `json:"vendorName" validate:"required"`
	Note       string            `json:"note"`
	Items      []lineItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateOrderInput{
		Number:      req.Number,
		VendorName:  req.VendorName,
		RequestedBy: actorID(r),
		Note:        req.Note,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, LineItem{
			BudgetLineID: item.BudgetLineID,
			Description:  item.Description,
			Quantity:     item.Quantity,
			UnitCents:    item.UnitCents,
		})
	}
	po, err := h.service.CreateOrder(r.Context(), input)
	if err != nil {
		h.respondError(w, "create order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	po, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.respondError(w, "get order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	filter := OrderFilter{
		Status: Status(r.URL.Query().Get("status")),
		Vendor: r.URL.Query().Get("vendor"),
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	orders, pagination, err := h.service.ListOrders(r.Context(), filter, page, perPage)
	if err != nil {
		h.respondError(w, "list orders", err)
		return
	}
	if orders == nil {
		orders = []PurchaseOrder{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": orders, "pagination": pagination})
}

type actionRequest struct {
	Note string `json:"note"`
}

// parseAction reads the order id and the optional note body shared by the
// lifecycle endpoints. A false return means the response was already written.
func (h *Handler) parseAction(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return 0, "", false
	}
	var req actionRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return 0, "", false
		}
	}
	return id, req.Note, true
}

func (h *Handler) respondAction(w http.ResponseWriter, op string, po PurchaseOrder, err error) {
	if err != nil {
		h.respondError(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	id, note, ok := h.parseAction(w, r)
	if !ok {
		return
	}
	po, err := h.service.Submit(r.Context(), id, actorID(r), note)
	h.respondAction(w, "submit order", po, err)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, note, ok := h.parseAction(w, r)
	if !ok {
		return
	}
	po, err := h.service.Approve(r.Context(), id, actorID(r), note)
	h.respondAction(w, "approve order", po, err)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, note, ok := h.parseAction(w, r)
	if !ok {
		return
	}
	po, err := h.service.Reject(r.Context(), id, actorID(r), note)
	h.respondAction(w, "reject order", po, err)
}

func (h *Handler) reopen(w http.ResponseWriter, r *http.Request) {
	id, note, ok := h.parseAction(w, r)
	if !ok {
		return
	}
	po, err := h.service.Reopen(r.Context(), id, actorID(r), note)
	h.respondAction(w, "reopen order", po, err)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.parseAction(w, r)
	if !ok {
		return
	}
	po, err := h.service.Complete(r.Context(), id, actorID(r))
	h.respondAction(w, "complete order", po, err)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, note, ok := h.parseAction(w, r)
	if !ok {
		return
	}
	po, err := h.service.Cancel(r.Context(), id, actorID(r), note)
	h.respondAction(w, "cancel order", po, err)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
