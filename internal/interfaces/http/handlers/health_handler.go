package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is anything whose connectivity the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	version string
	db      Pinger
	cache   Pinger
}

// NewHealthHandler wires the probes.  cache may be nil; the cache is
// fail-open so its health only shows as degraded, never unready.
func NewHealthHandler(version string, db Pinger, cache Pinger) *HealthHandler {
	return &HealthHandler{version: version, db: db, cache: cache}
}

// Live handles GET /healthz: the process is up.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.version})
}

// Ready handles GET /readyz: the store must answer; the cache is reported
// but does not gate readiness.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	status := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "unreachable"
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["cache"] = "degraded"
		} else {
			checks["cache"] = "ok"
		}
	}

	body := map[string]any{"checks": checks, "version": h.version}
	if status == http.StatusOK {
		body["status"] = "ready"
	} else {
		body["status"] = "unready"
	}
	writeJSON(w, status, body)
}
