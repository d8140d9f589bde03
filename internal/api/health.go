package api

import (
	"net/http"
	"time"

	"github.com/scanwatch/dispatch-engine/internal/bridge"
	"github.com/scanwatch/dispatch-engine/internal/database"
)

// HealthResponse is the /api/health body.
type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptimeSeconds"`
	Checks        map[string]string `json:"checks"`
}

// HealthHandler reports liveness of the database and the scanner bridge
// subprocess (§6 health probe). The database ping runs under the request
// context, bounded by HealthCheck's own 2s timeout.
type HealthHandler struct {
	db        *database.DB
	bridge    *bridge.Supervisor
	version   string
	startTime time.Time
}

func NewHealthHandler(db *database.DB, sup *bridge.Supervisor, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{db: db, bridge: sup, version: version, startTime: startTime}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.db.HealthCheck(r.Context()); err != nil {
		checks["database"] = "error"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.bridge != nil {
		bridgeStatus := h.bridge.Status()
		checks["scanner_bridge"] = bridgeStatus
		if bridgeStatus != "running" && status == "healthy" {
			status = "degraded"
		}
	} else {
		checks["scanner_bridge"] = "not_configured"
	}

	WriteJSON(w, httpStatus, HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	})
}
