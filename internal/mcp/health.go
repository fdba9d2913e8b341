package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const healthTimeout = 3 * time.Second

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Search    string `json:"search"`
	Cache     string `json:"cache,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker is implemented by the search backend and the embedding cache.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler creates an HTTP handler for the /health endpoint. cache may
// be nil when no embedding cache is configured; an unreachable cache degrades
// the status without failing the check.
func NewHealthHandler(search HealthChecker, cache HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		response := HealthResponse{
			Status:    "healthy",
			Search:    "connected",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		code := http.StatusOK

		if err := search.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Search = "disconnected"
			code = http.StatusServiceUnavailable
		}
		if cache != nil {
			response.Cache = "connected"
			if err := cache.Health(ctx); err != nil {
				response.Cache = "disconnected"
				if code == http.StatusOK {
					response.Status = "degraded"
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(response)
	}
}
