package budget

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lattice-ops/lattice/internal/platform/httpx"
)

// Handler manages budget endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers budget routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/lines", h.listLines)
	r.Post("/lines", h.createLine)
	r.Get("/lines/{id}", h.getLine)
	r.Put("/lines/{id}", h.updateLine)
	r.Post("/recalculate", h.recalculate)
	r.Get("/drift", h.drift)
	r.Get("/report", h.report)
}

type createLineRequest struct {
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name" validate:"required"`
	FiscalYear  int    `json:"fiscalYear" validate:"required,min=2000,max=2200"`
	BudgetCents int64  `json:"budgetCents" validate:"min=0"`
}

func (h *Handler) createLine(w http.ResponseWriter, r *http.Request) {
	var req createLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	line, err := h.service.CreateLine(r.Context(), CreateLineInput{
		Code:        req.Code,
		Name:        req.Name,
		FiscalYear:  req.FiscalYear,
		BudgetCents: req.BudgetCents,
	}, actorID(r))
	if err != nil {
		h.respondError(w, "create budget line", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, line)
}

type updateLineRequest struct {
	Name        string `json:"name" validate:"required"`
	BudgetCents int64  `json:"budgetCents" validate:"min=0"`
}

func (h *Handler) updateLine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid line id")
		return
	}
	var req updateLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	line, err := h.service.UpdateLine(r.Context(), id, req.Name, req.BudgetCents, actorID(r))
	if err != nil {
		h.respondError(w, "update budget line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, line)
}

func (h *Handler) getLine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid line id")
		return
	}
	line, err := h.service.GetLine(r.Context(), id)
	if err != nil {
		h.respondError(w, "get budget line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, line)
}

func (h *Handler) listLines(w http.ResponseWriter, r *http.Request) {
	fiscalYear, _ := strconv.Atoi(r.URL.Query().Get("fiscal_year"))
	lines, err := h.service.ListLines(r.Context(), fiscalYear)
	if err != nil {
		h.respondError(w, "list budget lines", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lines)
}

func (h *Handler) recalculate(w http.ResponseWriter, r *http.Request) {
	written, err := h.service.RecalculateAll(r.Context(), actorID(r))
	if err != nil {
		h.respondError(w, "recalculate ledgers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"linesWritten": written})
}

func (h *Handler) drift(w http.ResponseWriter, r *http.Request) {
	drifts, err := h.service.DriftScan(r.Context())
	if err != nil {
		h.respondError(w, "drift scan", err)
		return
	}
	if drifts == nil {
		drifts = []Drift{}
	}
	httpx.JSON(w, http.StatusOK, drifts)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	fiscalYear, _ := strconv.Atoi(r.URL.Query().Get("fiscal_year"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="budget_report.csv"`)
	if err := h.service.WriteReport(r.Context(), w, fiscalYear); err != nil {
		h.logger.Error("write budget report", slog.Any("error", err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
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
