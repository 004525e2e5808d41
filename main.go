package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"mdp-book/src/config"
	"mdp-book/src/frame"
	"mdp-book/src/handlers"
	"mdp-book/src/logger"
	"mdp-book/src/middleware"
	"mdp-book/src/pipeline"
	"mdp-book/src/routes"
)

const (
	exitOK = iota
	exitFailed
	exitConfig
	exitInput
)

func main() {
	os.Exit(run())
}

func run() int {
	logger.InitLogger()
	defer logger.CloseLogger()
	log := logger.GetLogger()

	log.Info().Msg("Initializing MDP book reconstruction")

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Error().Err(err).Str("config_file", os.Getenv("CONFIG_FILE")).Msg("Invalid configuration")
		return exitConfig
	}

	r, err := pipeline.New(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to prepare run")
		return exitCode(err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close run output")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	var app *fiber.App
	serverError := make(chan error, 1)
	if cfg.Server.Enabled {
		availability := middleware.DefaultServiceAvailability()
		r.OnPhase = func(p pipeline.Phase) {
			switch p {
			case pipeline.PhaseDecoding, pipeline.PhaseReplaying:
				availability.Rebuilding(string(p))
			default:
				availability.Ready()
			}
		}
		app = newApp(r, availability)

		port := ":" + cfg.Server.Port
		go func() {
			if err := app.Listen(port); err != nil {
				serverError <- err
			}
		}()
		log.Info().
			Str("port", port).
			Strs("endpoints", []string{
				"GET /api/v1/books",
				"GET /api/v1/books/:securityId",
				"GET /api/v1/books/:securityId/orders",
				"GET /api/v1/runs/current",
				"GET /health",
				"GET /metrics",
			}).
			Msg("Inspection API started")
	}

	code := exitOK
	if err := r.Execute(ctx); err != nil {
		log.Error().Err(err).Str("run_id", r.ID).Msg("Run failed")
		code = exitCode(err)
	} else {
		log.Info().Str("run_id", r.ID).Str("output_dir", cfg.Output.Dir).Msg("Run complete")
	}

	if app == nil {
		return code
	}

	select {
	case err := <-serverError:
		log.Error().
			Err(err).
			Str("port", cfg.Server.Port).
			Str("hint", "Port may be already in use. Try: PORT=3000").
			Msg("Server failed")
		return exitFailed
	case <-ctx.Done():
	}
	log.Info().Msg("Received shutdown signal, shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		// edge case: timeout during shutdown is acceptable
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().
				Dur("timeout", cfg.Server.ShutdownTimeout).
				Msg("Timeout exceeded, shutting down...")
		} else {
			log.Error().
				Err(err).
				Msg("Error during shutdown")
		}
	} else {
		log.Info().Msg("Shutdown complete")
	}
	return code
}

func newApp(r *pipeline.Run, availability *middleware.ServiceAvailability) *fiber.App {
	log := logger.GetLogger()

	app := fiber.New(fiber.Config{
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Error().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Int("status", code).
				Str("error", err.Error()).
				Msg("Request error")

			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	routes.SetupRoutes(app, handlers.NewBookHandler(r, r.Books, r.Instruments), availability)
	return app
}

func exitCode(err error) int {
	var cfgErr *config.ConfigurationError
	var unsupported *frame.UnsupportedInputError
	var framing *frame.StreamFramingError
	switch {
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &unsupported), errors.As(err, &framing), errors.Is(err, os.ErrNotExist):
		return exitInput
	}
	return exitFailed
}
