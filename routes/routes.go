package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"
	controller "teamfinder/controllers"
	"teamfinder/middleware"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize logger
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Auth routes group with logging and per-IP rate limiting
	auth := app.Group("/auth", middleware.AuthRateLimiter(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Google OAuth routes
	auth.Get("/google", controller.GoogleOAuth)
	auth.Get("/google/callback", controller.GoogleOAuthCallback)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Get("/me", controller.GetCurrentUser)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, hub *controller.Hub) {
	// Initialize controllers with their respective loggers
	profileController := controller.NewProfileController(db, log.New(os.Stdout, "PROFILE: ", log.LstdFlags))
	teamController := controller.NewTeamController(db, hub, log.New(os.Stdout, "TEAM: ", log.LstdFlags))
	requestController := controller.NewJoinRequestController(db, hub, log.New(os.Stdout, "REQUEST: ", log.LstdFlags))
	chatController := controller.NewChatController(db, hub, log.New(os.Stdout, "CHAT: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Pick lists for the client's forms
	api.Get("/catalog", teamController.GetCatalog)

	// Profile routes
	profile := api.Group("/profiles")
	profile.Get("/me", profileController.GetProfile)
	profile.Put("/me", profileController.SaveProfile)
	profile.Get("/:id", profileController.GetProfileByID)
	profile.Get("/:id/exists", profileController.ProfileExists)

	// Team routes
	team := api.Group("/teams")
	team.Get("/", teamController.ListTeams)
	team.Post("/", teamController.CreateTeam)
	team.Get("/mine", teamController.GetMyTeams)
	team.Get("/:id", teamController.GetTeam)
	team.Delete("/:id", teamController.DeleteTeam)
	team.Post("/:id/join", teamController.RequestJoin)
	team.Get("/:id/join/pending", teamController.CheckPendingRequest)

	// Join request routes (team-scoped listing, request-scoped resolution)
	team.Get("/:id/requests", requestController.ListPending)
	team.Get("/:id/requests/count", requestController.CountPending)
	request := api.Group("/requests")
	request.Post("/:id/approve", requestController.Approve)
	request.Post("/:id/reject", requestController.Reject)

	// Chat routes
	team.Get("/:id/messages", chatController.GetMessages)
	team.Post("/:id/messages", chatController.SendMessage)

	// WebSocket feeds; Protected() runs on the upgrade request so the
	// handlers see the authenticated user in Locals
	app.Get("/ws/teams", middleware.Protected(), websocket.New(hub.HandleTeamsWS))
	app.Get("/ws/teams/:id/chat", middleware.Protected(), websocket.New(hub.HandleChatWS))

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB, hub *controller.Hub) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup auth routes
	SetupAuthRoutes(app, db)

	// Setup API routes
	SetupAPIRoutes(app, db, hub)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
