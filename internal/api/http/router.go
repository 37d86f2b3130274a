package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/appointment-service/internal/api/http/handlers"
	"github.com/spec-kit/appointment-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Appointments   *handlers.AppointmentsHandler
	AuthMiddleware *auth.AuthMiddleware
	BookingLimiter *auth.RateLimiter
	// Gatherer backs /metrics; nil selects the default registry.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Welcome)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	appointments := app.Group("/appointments", cfg.AuthMiddleware.Handle)
	appointments.Get("/", auth.RequireCustomer(), cfg.Appointments.List)
	if cfg.BookingLimiter != nil {
		appointments.Post("/", cfg.BookingLimiter.Middleware(), cfg.Appointments.Create)
	} else {
		appointments.Post("/", cfg.Appointments.Create)
	}
	appointments.Delete("/:id", auth.RequireCustomer(), cfg.Appointments.Cancel)
}
