package httpapi

import (
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "nws-weather"

// NewServer builds the Fiber app with middleware, health, metrics and the
// weather routes. Access logs go to accessLog.
func NewServer(resolver LocationResolver, fetcher WeatherFetcher, log *slog.Logger, accessLog io.Writer) *fiber.App {
	if log == nil {
		log = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// resolve + fetch may spend several backoff rounds upstream
		WriteTimeout: 2 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := StatusFor(err)
			if code >= fiber.StatusInternalServerError {
				log.Error("request failed", "path", c.Path(), "status", code, "error", err)
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	if accessLog != nil {
		app.Use(logger.New(logger.Config{Output: accessLog}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	RegisterRoutes(app, resolver, fetcher, log)
	return app
}
