package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checker struct{ err error }

func (c checker) Health(ctx context.Context) error { return c.err }

func getHealth(t *testing.T, h http.Handler) (int, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, resp
}

func TestHealthHandler(t *testing.T) {
	down := errors.New("down")

	tests := []struct {
		name   string
		search checker
		cache  HealthChecker
		code   int
		status string
		cacheS string
	}{
		{"healthy without cache", checker{}, nil, http.StatusOK, "healthy", ""},
		{"healthy with cache", checker{}, checker{}, http.StatusOK, "healthy", "connected"},
		{"cache down", checker{}, checker{err: down}, http.StatusOK, "degraded", "disconnected"},
		{"search down", checker{err: down}, checker{}, http.StatusServiceUnavailable, "unhealthy", "connected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := getHealth(t, NewHealthHandler(tt.search, tt.cache))
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.cacheS, resp.Cache)
			assert.NotEmpty(t, resp.Timestamp)
			if tt.search.err != nil {
				assert.Equal(t, "disconnected", resp.Search)
			} else {
				assert.Equal(t, "connected", resp.Search)
			}
		})
	}
}

func TestRouter(t *testing.T) {
	server := NewServer(&Config{
		Retriever: &fakeRetriever{},
		Embedder:  &fakeQueryEmbedder{},
		Reporter:  fakeReporter{},
		Status:    fakeStatus{},
		Version:   "v1.0.0",
	})
	router := NewRouter(server, NewHealthHandler(checker{}, nil), &HTTPHandlerOptions{Stateless: true}, nil)

	code, resp := getHealth(t, router)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "v1.0.0")
	for _, name := range []string{"search_documents", "list_policies", "search_policy", "compliance_report", "document_status"} {
		assert.True(t, strings.Contains(body, name), "landing page lists %s", name)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
