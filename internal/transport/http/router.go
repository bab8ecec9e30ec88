// Package httptransport is the thin HTTP layer over the registries. Handlers
// decode, delegate, and encode; business rules live in the services.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stevedore/internal/platform/middleware"
	"stevedore/pkg/platform/httputil"
)

// NewRouter wires the middleware chain and all public endpoints.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/ingest", h.handleIngest)

	r.Route("/shipments/{shipmentID}", func(r chi.Router) {
		r.Get("/", h.handleGetShipment)
		r.Get("/state", h.handleGetState)
		r.Get("/history", h.handleGetHistory)
		r.Post("/state-override", h.handleStateOverride)
		r.Get("/reconciliations", h.handleListReconciliations)
		r.Post("/reconciliations", h.handleRunReconciliation)
		r.Get("/submission-gate", h.handleSubmissionGate)
	})

	r.Post("/reconciliations/{recordID}/resolve", h.handleResolveReconciliation)

	return r
}
