package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/excalidrive/excalidrive/pkg/blob"
	"github.com/excalidrive/excalidrive/pkg/drive/store"
)

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Are the metadata store and blob backend reachable?
type HealthHandler struct {
	store store.Store
	blobs blob.Adapter
}

// NewHealthHandler creates a new health handler. Either dependency may be
// nil, in which case readiness reports unhealthy.
func NewHealthHandler(st store.Store, blobs blob.Adapter) *HealthHandler {
	return &HealthHandler{store: st, blobs: blobs}
}

// Liveness handles GET /health - simple liveness probe.
//
// Returns 200 OK if the server process is running. Designed for Kubernetes
// liveness probes; it succeeds as long as the HTTP server is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "excalidrive",
	}))
}

// BackendHealth represents the health status of a single backend.
type BackendHealth struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// ReadinessResponse represents the detailed readiness response.
type ReadinessResponse struct {
	Database BackendHealth `json:"database"`
	Storage  BackendHealth `json:"storage"`
}

// Readiness handles GET /health/ready - readiness probe.
//
// Checks the metadata database and the blob backend with a short timeout.
// Returns 200 OK when both respond, 503 Service Unavailable otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := ReadinessResponse{}
	allHealthy := true

	response.Database = checkBackend(ctx, "metadata", func(ctx context.Context) error {
		if h.store == nil {
			return errNotConfigured
		}
		return h.store.HealthCheck(ctx)
	})
	if response.Database.Status != "healthy" {
		allHealthy = false
	}

	storageName := "storage"
	if h.blobs != nil {
		storageName = h.blobs.Provider()
	}
	response.Storage = checkBackend(ctx, storageName, func(ctx context.Context) error {
		if h.blobs == nil {
			return errNotConfigured
		}
		return h.blobs.HealthCheck(ctx)
	})
	if response.Storage.Status != "healthy" {
		allHealthy = false
	}

	if allHealthy {
		writeJSON(w, http.StatusOK, healthyResponse(response))
	} else {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponseWithData(response))
	}
}

var errNotConfigured = errors.New("not configured")

func checkBackend(ctx context.Context, name string, check func(context.Context) error) BackendHealth {
	start := time.Now()
	err := check(ctx)
	latency := time.Since(start)

	health := BackendHealth{
		Name:    name,
		Latency: latency.String(),
	}
	if err != nil {
		health.Status = "unhealthy"
		health.Error = err.Error()
	} else {
		health.Status = "healthy"
	}
	return health
}
