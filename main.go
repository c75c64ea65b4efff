package main

import (
	"context"
	"log"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"teamfinder/config"
	controller "teamfinder/controllers"
	"teamfinder/middleware"
	"teamfinder/routes"
	"teamfinder/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "SERVER: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Redis is optional; live feeds fall back to in-process broadcast
	if err := config.ConnectRedis(); err != nil {
		logger.Printf("Redis unavailable, continuing without pub/sub: %v", err)
	}

	// Sentry error reporting (no-op without a DSN)
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry initialization failed: %v", err)
		}
	}

	// Google sign-in
	controller.InitGoogleOAuth()

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Realtime hub for chat and team-list feeds
	hub := controller.NewHub(config.DB, config.Redis, log.New(os.Stdout, "HUB: ", log.LstdFlags))
	go hub.Listen(ctx)

	// Member-count reconciliation sweep
	reconcileWorker := worker.NewReconcileWorker(config.DB, log.New(os.Stdout, "RECONCILE: ", log.LstdFlags))
	go reconcileWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB, hub)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
