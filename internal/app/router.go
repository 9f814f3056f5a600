package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/lattice-ops/lattice/internal/audit/http"
	"github.com/lattice-ops/lattice/internal/budget"
	"github.com/lattice-ops/lattice/internal/observability"
	"github.com/lattice-ops/lattice/internal/purchasing"
	"github.com/lattice-ops/lattice/internal/receipts"
	"github.com/lattice-ops/lattice/internal/timeclock"
	"github.com/lattice-ops/lattice/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	TimeclockHandler  *timeclock.Handler
	PurchasingHandler *purchasing.Handler
	BudgetHandler     *budget.Handler
	ReceiptsHandler   *receipts.Handler
	AuditHandler      *audithttp.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Lattice defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/timeclock", params.TimeclockHandler.MountRoutes)
	r.Route("/purchasing", params.PurchasingHandler.MountRoutes)
	r.Route("/budget", params.BudgetHandler.MountRoutes)
	if params.ReceiptsHandler != nil {
		r.Route("/receipts", params.ReceiptsHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
