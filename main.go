// main.go
package main

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"taskhive/database"
	"taskhive/handlers"
	"taskhive/middleware"
	"taskhive/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	validateEnvironment()

	// Initialize database
	database.InitDB()
	defer database.CloseDB()

	// Wire services behind the handlers
	handlers.InitHandlers()
	defer func() {
		if cleanup := services.GetCleanupService(); cleanup != nil {
			cleanup.Stop()
		}
	}()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    1 * 1024 * 1024, // 1MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	// Per-IP rate limiting on all routes
	app.Use(middleware.FiberRateLimitMiddleware())

	// API Routes
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/register", handlers.Register)
	authGroup.Post("/login", handlers.Login)

	// Team routes
	teams := api.Group("/teams", middleware.AuthMiddleware)
	teams.Get("/", handlers.GetUserTeams)
	teams.Post("/", handlers.CreateTeam)
	teams.Post("/switch", handlers.SwitchTeam)
	teams.Get("/:id", handlers.GetTeam)
	teams.Put("/:id", handlers.UpdateTeam)
	teams.Delete("/:id", handlers.DeleteTeam)
	teams.Put("/:id/status", handlers.UpdateTeamStatus)

	// Membership routes
	teams.Get("/:id/members", handlers.GetTeamMembers)
	teams.Put("/:id/members/:memberId/role", handlers.UpdateMemberRole)
	teams.Delete("/:id/members/:memberId", handlers.RemoveMember)

	// Invitation routes
	teams.Get("/:id/invitations", handlers.ListInvitations)
	teams.Post("/:id/invitations", handlers.InviteMember)
	teams.Post("/:id/invitations/bulk", handlers.BulkInviteMembers)
	teams.Delete("/:id/invitations/:invitationId", handlers.CancelInvitation)
	teams.Post("/:id/invitations/:invitationId/remind", handlers.RemindInvitation)

	api.Post("/invitations/:token/accept", middleware.AuthMiddleware, handlers.AcceptInvitation)
	api.Post("/invitations/:token/decline", handlers.DeclineInvitation)

	api.Get("/users/search", middleware.AuthMiddleware, handlers.SearchUsers)

	// Notification routes
	notifications := api.Group("/notifications", middleware.AuthMiddleware)
	notifications.Get("/", handlers.GetNotifications)
	notifications.Put("/read-all", handlers.MarkAllNotificationsRead)
	notifications.Put("/:id/read", handlers.MarkNotificationRead)
	notifications.Delete("/:id", handlers.DeleteNotification)

	// Live notification stream
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/notifications", middleware.WebSocketAuthMiddleware, handlers.NotificationStream())

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Server starting on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func validateEnvironment() {
	if os.Getenv("JWT_SECRET") == "" {
		log.Println("Warning: JWT_SECRET not set, using insecure default")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
