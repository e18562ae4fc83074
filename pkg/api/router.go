package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/excalidrive/excalidrive/internal/logger"
	"github.com/excalidrive/excalidrive/pkg/api/auth"
	"github.com/excalidrive/excalidrive/pkg/api/handlers"
	apiMiddleware "github.com/excalidrive/excalidrive/pkg/api/middleware"
	"github.com/excalidrive/excalidrive/pkg/drive"
	"github.com/excalidrive/excalidrive/pkg/metrics"
)

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - GET /metrics - Prometheus scrape endpoint (when metrics are enabled)
//   - GET /api/v1/items - List the owner's namespace (?shape=tree nests it)
//   - POST /api/v1/items - Create a file or folder
//   - GET /api/v1/items/{id} - Fetch a single item
//   - PUT /api/v1/items/{id} - Rename and/or move an item
//   - DELETE /api/v1/items/{id} - Delete an item (folders recursively)
//   - GET /api/v1/items/{id}/content - Read a drawing's scene
//   - PUT /api/v1/items/{id}/content - Overwrite a drawing's scene
//
// All /api/v1 routes require a valid bearer token.
func NewRouter(d *drive.Coordinator, authService *auth.Service, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	// Health routes - unauthenticated
	healthHandler := newHealthHandler(d)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	if metrics.IsEnabled() {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	itemHandler := handlers.NewItemHandler(d)
	contentHandler := handlers.NewContentHandler(d)

	// API v1 routes - authenticated
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiMiddleware.JWTAuth(authService))

		r.Route("/items", func(r chi.Router) {
			r.Get("/", itemHandler.List)
			r.Post("/", itemHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", itemHandler.Get)
				r.Put("/", itemHandler.Update)
				r.Delete("/", itemHandler.Delete)

				r.Get("/content", contentHandler.Get)
				r.Put("/content", contentHandler.Put)
			})
		})
	})

	return r
}

// newHealthHandler wires the coordinator's backends into the health
// handler, tolerating a nil coordinator in tests.
func newHealthHandler(d *drive.Coordinator) *handlers.HealthHandler {
	if d == nil {
		return handlers.NewHealthHandler(nil, nil)
	}
	return handlers.NewHealthHandler(d.Store(), d.Blobs())
}

// isHealthPath returns true if the request path is a healthcheck endpoint.
func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/")
}

// requestLogger is a custom middleware that logs requests using the
// internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
//   - Healthcheck requests are logged at DEBUG level to reduce noise
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			logger.KeyRequestID, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logArgs := []any{
			logger.KeyRequestID, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyStatus, ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.KeyDuration, duration.String(),
		}

		// Log healthcheck requests at DEBUG to avoid polluting logs in k8s
		if isHealthPath(r.URL.Path) {
			logger.Debug("API request completed", logArgs...)
		} else {
			logger.Info("API request completed", logArgs...)
		}
	})
}
