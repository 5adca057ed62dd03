package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedrovega1/it-helpdesk/internal/observability"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func healthBody(t *testing.T, handler *HealthHandler) (int, map[string]any) {
	t.Helper()
	app := fiber.New()
	app.Get("/api/health", handler.Health)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealthReportsMemoryCacheBackend(t *testing.T) {
	handler := NewHealthHandler("helpdesk", "1.0.0", stubPinger{}, nil, observability.NewMetrics())

	status, body := healthBody(t, handler)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "connected", body["database"])
	assert.Equal(t, "memory", body["cache"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestHealthReportsRedisCacheBackend(t *testing.T) {
	handler := NewHealthHandler("helpdesk", "1.0.0", stubPinger{}, stubPinger{}, observability.NewMetrics())

	_, body := healthBody(t, handler)
	assert.Equal(t, "connected", body["cache"])
}

func TestHealthDatabaseOutageIsServiceError(t *testing.T) {
	handler := NewHealthHandler("helpdesk", "1.0.0",
		stubPinger{err: errors.New("down")}, nil, observability.NewMetrics())

	status, body := healthBody(t, handler)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "error", body["database"])
}

func TestHealthCacheOutageDoesNotFailService(t *testing.T) {
	handler := NewHealthHandler("helpdesk", "1.0.0",
		stubPinger{}, stubPinger{err: errors.New("down")}, observability.NewMetrics())

	status, body := healthBody(t, handler)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "error", body["cache"])
}
