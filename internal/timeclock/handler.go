package timeclock

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/lattice-ops/lattice/internal/platform/httpx"
)

// Handler manages timeclock endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	pollLimit int
}

// NewHandler builds a Handler instance. pollLimit bounds status polls per
// client IP per minute.
func NewHandler(logger *slog.Logger, service *Service, pollLimit int) *Handler {
	if pollLimit <= 0 {
		pollLimit = 30
	}
	return &Handler{logger: logger, service: service, validator: validator.New(), pollLimit: pollLimit}
}

// MountRoutes registers timeclock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/clock-in", h.clockIn)
	r.Post("/clock-out", h.clockOut)
	r.Get("/config", h.getConfig)
	r.Put("/config", h.updateConfig)
	r.Get("/periods", h.listPeriods)
	r.Get("/export", h.exportPeriod)
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(h.pollLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Get("/status", h.status)
	})
}

type clockRequest struct {
	EmployeeID int64  `json:"employeeId" validate:"required,gt=0"`
	At         string `json:"at" validate:"omitempty"`
}

func (h *Handler) clockIn(w http.ResponseWriter, r *http.Request) {
	var req clockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	at, ok := parseInstant(req.At, h.service.Zone())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "at must be RFC3339 or a local YYYY-MM-DDTHH:MM:SS timestamp")
		return
	}
	entry, err := h.service.ClockIn(r.Context(), req.EmployeeID, at)
	if err != nil {
		h.respondError(w, "clock in", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) clockOut(w http.ResponseWriter, r *http.Request) {
	var req clockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	at, ok := parseInstant(req.At, h.service.Zone())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "at must be RFC3339 or a local YYYY-MM-DDTHH:MM:SS timestamp")
		return
	}
	entry, err := h.service.ClockOut(r.Context(), req.EmployeeID, at)
	if err != nil {
		h.respondError(w, "clock out", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	employeeID, _ := strconv.ParseInt(r.URL.Query().Get("employee_id"), 10, 64)
	if employeeID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "employee_id is required")
		return
	}
	status, err := h.service.LiveStatus(r.Context(), employeeID, time.Time{})
	if err != nil {
		h.respondError(w, "live status", err)
		return
	}
	if status == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"enabled": true, "daily": status.Daily, "weekly": status.Weekly})
}

type configRequest struct {
	DailyThresholdMinutes    *int   `json:"dailyThresholdMinutes" validate:"omitempty,min=0"`
	WeeklyThresholdMinutes   *int   `json:"weeklyThresholdMinutes" validate:"omitempty,min=0"`
	AlertBeforeDailyMinutes  int    `json:"alertBeforeDailyMinutes" validate:"min=0"`
	AlertBeforeWeeklyMinutes int    `json:"alertBeforeWeeklyMinutes" validate:"min=0"`
	PeriodKind               string `json:"periodKind" validate:"required,oneof=WEEKLY BIWEEKLY SEMIMONTHLY MONTHLY"`
	WeekStartDay             int    `json:"weekStartDay" validate:"min=0,max=6"`
	ReferenceAnchor          string `json:"referenceAnchor" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.GetSettings(r.Context())
	if err != nil {
		h.respondError(w, "get config", err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

func (h *Handler) updateConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	settings := Settings{
		PeriodSpec: PayPeriodSpec{Kind: PayPeriodKind(req.PeriodKind), WeekStartDay: req.WeekStartDay},
	}
	if req.ReferenceAnchor != "" {
		anchor, err := time.Parse("2006-01-02", req.ReferenceAnchor)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "referenceAnchor must be YYYY-MM-DD")
			return
		}
		settings.PeriodSpec.ReferenceAnchor = anchor
	}
	if req.DailyThresholdMinutes != nil || req.WeeklyThresholdMinutes != nil {
		settings.Thresholds = &OvertimeThresholds{
			DailyMinutes:             req.DailyThresholdMinutes,
			WeeklyMinutes:            req.WeeklyThresholdMinutes,
			AlertBeforeDailyMinutes:  req.AlertBeforeDailyMinutes,
			AlertBeforeWeeklyMinutes: req.AlertBeforeWeeklyMinutes,
		}
	}
	if err := h.service.UpdateSettings(r.Context(), settings, actorID(r)); err != nil {
		h.respondError(w, "update config", err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

func (h *Handler) listPeriods(w http.ResponseWriter, r *http.Request) {
	count, _ := strconv.Atoi(r.URL.Query().Get("count"))
	if count <= 0 {
		count = 6
	}
	if count > 26 {
		count = 26
	}
	periods, err := h.service.Periods(r.Context(), time.Time{}, count)
	if err != nil {
		h.respondError(w, "list periods", err)
		return
	}
	httpx.JSON(w, http.StatusOK, periods)
}

func (h *Handler) exportPeriod(w http.ResponseWriter, r *http.Request) {
	var ref time.Time
	raw := r.URL.Query().Get("start")
	if raw == "" {
		raw = r.URL.Query().Get("date")
	}
	if raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.service.Zone())
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start must be YYYY-MM-DD")
			return
		}
		ref = parsed
	}
	period, summary, err := h.service.PeriodSummary(r.Context(), ref)
	if err != nil {
		h.respondError(w, "export period", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="payroll_`+period.Start.Format("2006-01-02")+`.csv"`)
	if err := WritePayrollCSV(w, period, summary); err != nil {
		h.logger.Error("write payroll csv", slog.Any("error", err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrSessionOpen), errors.Is(err, ErrNoOpenSession):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// parseInstant accepts RFC3339 instants with an explicit offset, or a naive
// local timestamp interpreted in the configured zone.
func parseInstant(raw string, zone *time.Location) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(zone), true
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", raw, zone)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
