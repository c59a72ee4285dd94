package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheckFunc reports whether one dependency is reachable.
type HealthCheckFunc func(ctx context.Context) error

// StatsFunc returns counters reported alongside the checks, such as
// connection pool statistics.
type StatsFunc func(ctx context.Context) interface{}

type HealthHandler struct {
	version string
	checks  map[string]HealthCheckFunc
	stats   map[string]StatsFunc
}

// NewHealthHandler builds the handler. stats may be nil.
func NewHealthHandler(version string, checks map[string]HealthCheckFunc, stats map[string]StatsFunc) *HealthHandler {
	return &HealthHandler{version: version, checks: checks, stats: stats}
}

func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "ok"
	services := fiber.Map{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			services[name] = err.Error()
			status = "degraded"
			continue
		}
		services[name] = "connected"
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	body := fiber.Map{
		"status":   status,
		"version":  h.version,
		"services": services,
	}
	if len(h.stats) > 0 {
		stats := fiber.Map{}
		for name, fn := range h.stats {
			stats[name] = fn(ctx)
		}
		body["stats"] = stats
	}
	return c.Status(code).JSON(body)
}
