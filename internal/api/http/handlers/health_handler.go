package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pedrovega1/it-helpdesk/internal/observability"
)

// Pinger reports reachability of a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service and dependency health. cache is nil when the
// listing cache runs in process, so there is nothing remote to probe.
type HealthHandler struct {
	serviceName string
	version     string
	db          Pinger
	cache       Pinger
	metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, db, cache Pinger, metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, db: db, cache: cache, metrics: metrics}
}

// Health GET /api/health.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	database := "connected"
	status := fiber.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		database = "error"
		status = fiber.StatusServiceUnavailable
	}

	// A cache outage degrades listings to store reads, not the service.
	cacheState := "memory"
	if h.cache != nil {
		cacheState = "connected"
		if err := h.cache.Ping(ctx); err != nil {
			cacheState = "error"
		}
	}

	requests, errs := h.metrics.Totals()
	return c.Status(status).JSON(fiber.Map{
		"status":    statusWord(status),
		"service":   h.serviceName,
		"version":   h.version,
		"database":  database,
		"cache":     cacheState,
		"requests":  requests,
		"errors":    errs,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func statusWord(status int) string {
	if status == fiber.StatusOK {
		return "ok"
	}
	return "error"
}
