package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes adds liveness/readiness style endpoints. Stores that
// are not configured report "memory".
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		checks := fiber.Map{}
		healthy := true
		record := func(name string, configured bool, ping func() error) {
			if !configured {
				checks[name] = "memory"
				return
			}
			if err := ping(); err != nil {
				checks[name] = err.Error()
				healthy = false
				return
			}
			checks[name] = "ok"
		}

		record("postgres", d.DB != nil, func() error { return d.DB.Ping(ctx) })
		record("mongo", d.Mongo != nil, func() error { return d.Mongo.Client().Ping(ctx, nil) })
		record("redis", d.Cache != nil, func() error { return d.Cache.Ping(ctx).Err() })

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
