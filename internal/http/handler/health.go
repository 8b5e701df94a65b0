package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"

	"pmapi/internal/storage"
)

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck pings the database and the object store.
func HealthCheck(db *sql.DB, store storage.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		report := healthReport{Status: "healthy", Checks: map[string]string{}}
		check := func(name string, ping func(context.Context) error) {
			if err := ping(ctx); err != nil {
				report.Status = "unhealthy"
				report.Checks[name] = "unavailable"
				return
			}
			report.Checks[name] = "ok"
		}

		check("database", db.PingContext)
		if store != nil {
			check("storage", store.Ping)
		}

		if report.Status != "healthy" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(report)
		}
		return c.Status(fiber.StatusOK).JSON(report)
	}
}

// LivenessProbe answers 200 while the process is serving.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
