package main

import (
	"context"
	"log"

	"workshop-service/internal/api"
	"workshop-service/internal/config"
	"workshop-service/internal/notify"
	"workshop-service/internal/repository"
	"workshop-service/internal/s3"
	"workshop-service/internal/service"
	"workshop-service/internal/storage"
	"workshop-service/internal/tracing"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	shutdownTracer, err := tracing.InitTracerProvider("workshop-service", cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		}
	}()

	db, err := storage.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Printf("Database connected (%s): %s", cfg.DBType, cfg.MaskedDSN())

	publisher, err := notify.NewPublisher(cfg.NATSURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer publisher.Close()

	presigner, err := s3.NewAvatarPresigner(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize avatar presigner: %v", err)
	}
	if presigner != nil {
		log.Println("Avatar presigner initialized.")
	}

	userRepo := repository.NewUserRepository(db)
	workshopRepo := repository.NewWorkshopRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)

	authService := service.NewAuthService(cfg, userRepo)
	workshopService := service.NewWorkshopService(workshopRepo, registrationRepo, publisher)

	authHandler := api.NewAuthHandler(authService, cfg)
	userHandler := api.NewUserHandler(presigner)
	workshopHandler := api.NewWorkshopHandler(workshopService)

	app := fiber.New()
	app.Use(otelfiber.Middleware())
	api.SetupRoutes(app, cfg, authService, authHandler, userHandler, workshopHandler)

	log.Printf("Listening workshop-service on port %s", cfg.AppPort)
	log.Fatal(app.Listen(":" + cfg.AppPort))
}
