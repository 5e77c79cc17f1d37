package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/affinity/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthProbeTimeout = 3 * time.Second

// HealthChecker reports whether the scoring dependency answers.
type HealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	checker HealthChecker
}

// NewHealthHandler creates a new health handler. checker may be nil.
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

type healthResponse struct {
	Status  string `json:"status"`
	Scoring string `json:"scoring,omitempty"`
}

// HandleHealth handles GET /healthz requests.
// With ?format=json it checks the scorer and returns a JSON status;
// otherwise it serves the Prometheus exposition from the custom registry.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") != "json" {
		promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
		return
	}

	resp := healthResponse{Status: "ok"}
	if h.checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		defer cancel()
		resp.Scoring = "available"
		if !h.checker.HealthCheck(ctx) {
			// the service still answers in fallback mode
			resp.Status = "degraded"
			resp.Scoring = "unavailable"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
