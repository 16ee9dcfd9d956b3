package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	httpapi "github.com/i474232898/roadtrip-planner/internal/api/http"
	"github.com/i474232898/roadtrip-planner/internal/catalog"
	"github.com/i474232898/roadtrip-planner/internal/config"
	"github.com/i474232898/roadtrip-planner/internal/geodata"
	"github.com/i474232898/roadtrip-planner/internal/scheduler"
	"github.com/i474232898/roadtrip-planner/internal/store"
	"github.com/i474232898/roadtrip-planner/internal/weather"
	"github.com/i474232898/roadtrip-planner/internal/weather/providers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound weather calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Meteostat provider with resilience (backoff + circuit breaker).
	provider := providers.NewMeteostatProvider(httpClient, cfg.MeteostatAPIKey, cfg.NormalsStartYear, cfg.NormalsEndYear)

	// Weather service with a bounded dailies cache.
	dailies := store.NewDailiesCache(cfg.DailiesCacheMaxAge)
	wsvc := weather.NewService(provider, dailies, cfg.Timespan())

	// Catalog service owning the persisted catalog, coordinate table, and
	// normals cache.
	src := geodata.NewSource(cfg.GeodataDir, cfg.GeocoderAPIKey)
	cat := catalog.NewService(cfg.CatalogPath, src, wsvc, store.NewNormalsCache())

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 10*time.Minute)
	if err := cat.Load(loadCtx); err != nil {
		cancelLoad()
		log.Fatalf("failed to load catalog: %v", err)
	}
	cancelLoad()
	log.Printf("INFO: catalog loaded; %d routable cities", len(cat.CoordinateTable()))
	for _, warning := range cat.Warnings() {
		log.Printf("WARNING: %s", warning)
	}

	// Background refresh of the normals cache.
	sched := scheduler.New(cat, cfg.NormalsRefreshInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "roadtrip-planner",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "roadtrip-planner",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, cat, wsvc)

	log.Println("INFO: GPS data by SimpleMaps (https://simplemaps.com), weather data by Meteostat (https://meteostat.net)")

	// Start server with graceful shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
