package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Pinger checks connectivity to a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service liveness and dependency health.
type HealthHandler struct {
	postgres Pinger
	redis    Pinger
}

func NewHealthHandler(postgres, redis Pinger) *HealthHandler {
	return &HealthHandler{postgres: postgres, redis: redis}
}

// Check reports overall status; degraded when a dependency is unreachable.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "ok"
	deps := fiber.Map{}
	if err := h.postgres.Ping(c.UserContext()); err != nil {
		status = "degraded"
		deps["postgres"] = err.Error()
	} else {
		deps["postgres"] = "ok"
	}
	if err := h.redis.Ping(c.UserContext()); err != nil {
		status = "degraded"
		deps["redis"] = err.Error()
	} else {
		deps["redis"] = "ok"
	}
	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{"status": status, "dependencies": deps})
}
