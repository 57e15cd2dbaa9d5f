package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/travigo/tyne-and-wear-metro/pkg/coordinator"
)

// Health reports 503 while the most recent refresh pass is failing. A
// coordinator that has not run a pass yet is healthy.
func Health(coord *coordinator.Coordinator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		healthy, err := coord.Healthy()

		response := fiber.Map{
			"status":       "ok",
			"last_update":  formatTime(coord.LastUpdate()),
			"last_attempt": formatTime(coord.LastAttempt()),
		}

		if !healthy {
			response["status"] = "failing"
			response["error"] = err.Error()
			c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.JSON(response)
	}
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339)
}
