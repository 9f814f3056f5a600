package jobs

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/lattice-ops/lattice/internal/platform/httpx"
)

// runnableTasks are the task types operators may trigger over HTTP.
var runnableTasks = map[string]string{
	"budget-reconcile":    TypeBudgetReconcile,
	"budget-drift-scan":   TypeBudgetDriftScan,
	"timeclock-autoclose": TypeTimeclockAutoclose,
}

// Handler exposes queue health and on-demand task runs.
type Handler struct {
	logger    *slog.Logger
	client    *Client
	inspector *asynq.Inspector
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, client *Client, redisAddr string) *Handler {
	return &Handler{
		logger:    logger,
		client:    client,
		inspector: asynq.NewInspector(asynq.RedisClientOpt{Addr: redisAddr}),
	}
}

// MountRoutes registers job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/queues", h.queues)
	r.Post("/run/{task}", h.run)
}

func (h *Handler) queues(w http.ResponseWriter, r *http.Request) {
	names, err := h.inspector.Queues()
	if err != nil {
		h.logger.Error("list queues", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
		return
	}
	type queueStatus struct {
		Name      string `json:"name"`
		Size      int    `json:"size"`
		Pending   int    `json:"pending"`
		Active    int    `json:"active"`
		Retry     int    `json:"retry"`
		Archived  int    `json:"archived"`
		Completed int    `json:"completed"`
	}
	out := make([]queueStatus, 0, len(names))
	for _, name := range names {
		info, err := h.inspector.GetQueueInfo(name)
		if err != nil {
			h.logger.Error("queue info", slog.String("queue", name), slog.Any("error", err))
			continue
		}
		out = append(out, queueStatus{
			Name:      info.Queue,
			Size:      info.Size,
			Pending:   info.Pending,
			Active:    info.Active,
			Retry:     info.Retry,
			Archived:  info.Archived,
			Completed: info.Completed,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	taskType, ok := runnableTasks[chi.URLParam(r, "task")]
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown task")
		return
	}
	if err := h.client.Enqueue(r.Context(), taskType); err != nil {
		h.logger.Error("enqueue task", slog.String("type", taskType), slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"enqueued": taskType})
}
