// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"
	"time"

	"github.com/goclaw/goclaw/pkg/api/response"
	"github.com/goclaw/goclaw/pkg/stats"
	"github.com/goclaw/goclaw/pkg/storage"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store storage.SystemStorage
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store storage.SystemStorage) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health handles the /health endpoint (liveness probe).
// @Summary Health check
// @Description Check if the service is alive and running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string "Service is healthy"
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Ready handles the /ready endpoint (readiness probe). A coordinator is
// ready when a lock attempt on the root path returns without a storage
// error, proving the storage backend is reachable. If the lease was
// acquired it is released again; a refused lock (lease held by another
// writer) still reports ready.
// @Summary Readiness check
// @Description Check if the storage backend is reachable
// @Tags health
// @Produce json
// @Success 200 {object} map[string]bool "Service is ready"
// @Failure 503 {object} map[string]bool "Service is not ready"
// @Router /ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now()
	acquired, _, err := h.store.LockNode(ctx, "/", now)
	if err != nil {
		response.JSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	if acquired {
		h.store.UnlockNode(ctx, "/", now)
	}
	response.JSON(w, http.StatusOK, map[string]bool{"ready": true})
}

// Status handles the /status endpoint (detailed status).
// @Summary Detailed status
// @Description Get accumulated write-path phase timing statistics
// @Tags health
// @Produce json
// @Success 200 {object} stats.Snapshot "Detailed status information"
// @Router /status [get]
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, stats.Instance().Snapshot())
}
