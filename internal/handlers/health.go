package handlers

import (
	"net/http"
	"time"

	"github.com/emberwok/api/internal/platform/httpx"
)

// HealthHandlers exposes liveness and readiness probes.
type HealthHandlers struct {
	started time.Time
	ready   func() bool
}

// NewHealthHandlers constructs health handlers that report ready once the
// process is up. A custom readiness check can be attached with SetReady.
func NewHealthHandlers() *HealthHandlers {
	return &HealthHandlers{started: time.Now()}
}

// SetReady installs a readiness probe callback.
func (h *HealthHandlers) SetReady(fn func() bool) {
	h.ready = fn
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(h.started).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readyz reports whether the service can take traffic.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil && !h.ready() {
		httpx.WriteError(r.Context(), w, httpx.NewError("not_ready", "service is not ready", http.StatusServiceUnavailable))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
