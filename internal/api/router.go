package api

import (
	"time"

	"workshop-service/internal/config"
	"workshop-service/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// SetupRoutes wires middleware and the full route table onto the app.
func SetupRoutes(
	app *fiber.App,
	cfg config.Config,
	auth service.AuthService,
	authHandler *AuthHandler,
	userHandler *UserHandler,
	workshopHandler *WorkshopHandler,
) {
	app.Use(RequestID())
	app.Use(RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: time.Duration(cfg.RateLimitExpiration) * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))

	app.Get("/", healthCheck)

	authRoutes := app.Group("/auth")
	authRoutes.Get("/providers", authHandler.Providers)
	authRoutes.Get("/config", authHandler.Config)
	authRoutes.Get("/google/url", authHandler.GoogleURL)
	authRoutes.Post("/google/url", authHandler.GoogleURL)
	authRoutes.Post("/extract-token", authHandler.ExtractToken)
	authRoutes.Get("/verify", authHandler.Verify)
	authRoutes.Post("/signout", AuthMiddleware(auth), authHandler.SignOut)

	userRoutes := app.Group("/user", AuthMiddleware(auth))
	userRoutes.Get("/profile", userHandler.Profile)
	userRoutes.Post("/profile/avatar/upload-url", userHandler.AvatarUploadURL)

	requireAuth := AuthMiddleware(auth)
	app.Get("/workshops", requireAuth, workshopHandler.List)
	app.Get("/workshops/:id", requireAuth, workshopHandler.Get)
	app.Post("/signup/:id", requireAuth, workshopHandler.Signup)
	app.Post("/cancel/:id", requireAuth, workshopHandler.Cancel)
	app.Get("/registration_status/:id", requireAuth, workshopHandler.RegistrationStatus)
	app.Get("/vacant/:id", requireAuth, workshopHandler.Vacant)
	app.Get("/by_skill", requireAuth, workshopHandler.BySkill)
	app.Get("/by_user_skills", requireAuth, workshopHandler.ByUserSkills)
}

func healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "workshop-service",
		"version": "1.0",
		"endpoints": fiber.Map{
			"authentication": []string{
				"GET  /auth/providers - List auth providers",
				"GET  /auth/config - Get auth configuration",
				"GET  /auth/google/url - Generate Google OAuth URL",
				"POST /auth/google/url - Generate OAuth URL with custom redirect",
				"POST /auth/extract-token - Extract token from OAuth callback URL",
				"POST /auth/signout - Sign out current user",
				"GET  /auth/verify - Verify token and get user info",
			},
			"user": []string{
				"GET  /user/profile - Get authenticated user profile",
			},
			"workshops": []string{
				"GET  /workshops - List all workshops",
				"GET  /workshops/{id} - Get workshop details",
				"POST /signup/{id} - Sign up for workshop",
				"POST /cancel/{id} - Cancel registration",
				"GET  /registration_status/{id} - Check registration status",
			},
		},
	})
}
