// Package httpapi is the thin HTTP layer over the catalog service. Handlers
// delegate to the service so transport concerns stay isolated; the audit
// pipeline rides along inside every mutating call.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"auditflow/internal/identity"
	"auditflow/pkg/platform/middleware/requesttime"
)

// NewRouter wires the catalog endpoints plus the ops surface. The identity
// middleware attributes mutations to the bearer-token subject; unattributed
// requests fall back to the system actor.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requesttime.Middleware)
	r.Use(identity.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.handleCreateProduct)
		r.Put("/{id}", h.handleUpdateProduct)
		r.Delete("/{id}", h.handleDeleteProduct)
		r.Delete("/{id}/purge", h.handlePurgeProduct)
	})
	return r
}
