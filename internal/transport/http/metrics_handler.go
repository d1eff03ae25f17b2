package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "deliverystats/internal/errors"
)

// MetricsHandler exposes the Prometheus scrape endpoint
type MetricsHandler struct {
	scrape http.Handler
}

// NewMetricsHandler wraps a Prometheus handler. A nil handler makes the
// endpoint answer 503.
func NewMetricsHandler(scrape http.Handler) *MetricsHandler {
	return &MetricsHandler{scrape: scrape}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetMetrics)
	return r
}

// GetMetrics serves the current metric values in the Prometheus text format
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if h.scrape == nil {
		apierrors.WriteError(w, apierrors.ErrServiceUnavailable)
		return
	}
	h.scrape.ServeHTTP(w, r)
}
