package handler

import (
	"net/http"
	"time"

	"github.com/pitchboard/pitchboard/internal/api/respond"
)

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns response-cache and fetch-memo statistics.
// @Summary Cache health check
// @Description Returns response cache statistics and fetch memoization counters.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Snapshot(),
		"memo":      h.svc.MemoStats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
