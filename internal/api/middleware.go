package api

import (
	"errors"
	"log"
	"strings"
	"time"

	"workshop-service/internal/model"
	"workshop-service/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	localUserKey  = "user"
	localTokenKey = "token"
)

// AuthMiddleware extracts the bearer token, verifies it, and stores the
// resolved local user for handlers. Verification creates the user row on
// first sight.
func AuthMiddleware(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}

		user, err := auth.Verify(c.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrProviderNotConfigured) {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		c.Locals(localUserKey, user)
		c.Locals(localTokenKey, token)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("Missing authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.New("Invalid authorization header format")
	}

	token := parts[1]
	if strings.Count(token, ".") != 2 {
		return "", errors.New("Invalid JWT format: token must have 3 dot-separated parts")
	}
	return token, nil
}

func currentUser(c *fiber.Ctx) *model.User {
	user, _ := c.Locals(localUserKey).(*model.User)
	return user
}

func currentToken(c *fiber.Ctx) string {
	token, _ := c.Locals(localTokenKey).(string)
	return token
}

// RequestID propagates an inbound X-Request-ID or assigns a fresh one.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)
		return c.Next()
	}
}

// RequestLogger logs one line per request with the request id and duration.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Printf("[REQ] id=%v %s %s status=%d dur=%s",
			c.Locals("reqid"), c.Method(), c.OriginalURL(), c.Response().StatusCode(), time.Since(start))
		return err
	}
}
