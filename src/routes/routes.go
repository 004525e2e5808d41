package routes

import (
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"mdp-book/src/handlers"
	"mdp-book/src/middleware"
)

// SetupRoutes mounts the book API. availability may be nil, in which case
// one is built from the environment.
func SetupRoutes(app *fiber.App, bookHandler *handlers.BookHandler, availability *middleware.ServiceAvailability) *middleware.ServiceAvailability {
	rateLimitDisabled := os.Getenv("RATE_LIMIT_DISABLED") == "1"

	maxRequests := 100
	if envMax := os.Getenv("RATE_LIMIT_MAX"); envMax != "" {
		if parsed, err := strconv.Atoi(envMax); err == nil && parsed > 0 {
			maxRequests = parsed
		}
	}

	windowDuration := time.Second
	if envWindow := os.Getenv("RATE_LIMIT_WINDOW"); envWindow != "" {
		if parsed, err := time.ParseDuration(envWindow); err == nil && parsed > 0 {
			windowDuration = parsed
		}
	}

	if availability == nil {
		availability = middleware.DefaultServiceAvailability()
	}
	app.Use(middleware.RequestLogger())
	app.Use(availability.Middleware())

	api := app.Group("/api/v1")

	if !rateLimitDisabled {
		rateLimiter := middleware.NewRateLimiter(maxRequests, windowDuration)
		api.Use(rateLimiter.Middleware())
	}

	api.Get("/books", bookHandler.ListBooks)
	api.Get("/books/:securityId", bookHandler.GetBook)
	api.Get("/books/:securityId/orders", bookHandler.GetOrders)
	api.Get("/runs/current", bookHandler.CurrentRun)

	app.Get("/health", bookHandler.HealthCheck)
	app.Get("/metrics", bookHandler.Metrics)

	return availability
}
