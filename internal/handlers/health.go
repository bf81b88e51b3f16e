package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/fjmerc/arcana/internal/metrics"
)

const healthCheckTimeout = 5 * time.Second

// Pinger is the storage liveness probe. *sql.DB satisfies it directly; the
// postgres pool is adapted in main.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthResponse is the shape of GET /api/health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// setHealthCacheHeaders prevents probes from seeing cached responses.
func setHealthCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

// HealthHandler handles GET /api/health. Unhealthy means the database does
// not answer a ping within the timeout.
func HealthHandler(db Pinger, version string, startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			setHealthCacheHeaders(w)
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		response := HealthResponse{
			Status:  "healthy",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  map[string]string{"database": "ok"},
		}
		httpCode := http.StatusOK

		if err := db.PingContext(ctx); err != nil {
			response.Status = "unhealthy"
			response.Checks["database"] = err.Error()
			httpCode = http.StatusServiceUnavailable
			metrics.HealthStatus.Set(0)
		} else {
			metrics.HealthStatus.Set(2)
		}

		setHealthCacheHeaders(w)
		sendJSON(w, httpCode, response)
	}
}
