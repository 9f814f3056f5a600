// Package audithttp exposes the audit timeline over HTTP.
package audithttp

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lattice-ops/lattice/internal/audit"
	"github.com/lattice-ops/lattice/internal/platform/httpx"
)

// Handler manages audit endpoints.
type Handler struct {
	logger  *slog.Logger
	service *audit.Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *audit.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.timeline)
	r.Get("/export", h.export)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Timeline(r.Context(), filter)
	if err != nil {
		h.respondError(w, "audit timeline", err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit_trail.csv"`)
	if err := h.service.WriteCSV(r.Context(), w, filter); err != nil {
		h.logger.Error("write audit csv", slog.Any("error", err))
	}
}

func (h *Handler) parseFilter(w http.ResponseWriter, r *http.Request) (audit.Filter, bool) {
	q := r.URL.Query()
	filter := audit.Filter{
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Action:   q.Get("action"),
	}
	filter.ActorID, _ = strconv.ParseInt(q.Get("actor_id"), 10, 64)
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	for _, bound := range []struct {
		name   string
		target *time.Time
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	} {
		raw := q.Get(bound.name)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", bound.name+" must be RFC3339")
			return audit.Filter{}, false
		}
		*bound.target = parsed
	}
	return filter, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, audit.ErrValidation) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
