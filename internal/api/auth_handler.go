package api

import (
	"errors"
	"log"

	"workshop-service/internal/config"
	"workshop-service/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	auth     service.AuthService
	cfg      config.Config
	validate *validator.Validate
}

func NewAuthHandler(auth service.AuthService, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		cfg:      cfg,
		validate: validator.New(),
	}
}

type GoogleURLRequest struct {
	RedirectTo string `json:"redirect_to" validate:"omitempty,url"`
}

type ExtractTokenRequest struct {
	CallbackURL string `json:"callback_url" validate:"required,url"`
}

// Providers lists the authentication providers available to the frontend.
func (h *AuthHandler) Providers(c *fiber.Ctx) error {
	providers := []fiber.Map{}
	if h.cfg.SupabaseURL != "" {
		providers = append(providers, fiber.Map{
			"name":         "google",
			"display_name": "Google",
			"type":         "oauth",
			"endpoint":     "/auth/google/url",
			"available":    true,
		})
	}

	return c.JSON(fiber.Map{
		"providers":        providers,
		"count":            len(providers),
		"default_redirect": h.cfg.FrontendURL + "/auth/callback",
	})
}

// Config exposes the non-secret auth configuration to the frontend.
func (h *AuthHandler) Config(c *fiber.Ctx) error {
	configured := h.cfg.SupabaseURL != "" && h.cfg.SupabaseKey != ""

	supported := []string{}
	if h.cfg.SupabaseURL != "" {
		supported = append(supported, "google")
	}

	var supabaseURL interface{}
	if h.cfg.SupabaseURL != "" {
		supabaseURL = h.cfg.SupabaseURL
	}

	return c.JSON(fiber.Map{
		"supabase_configured":    configured,
		"supabase_url":           supabaseURL,
		"google_oauth_available": h.cfg.SupabaseURL != "",
		"supported_providers":    supported,
		"endpoints": fiber.Map{
			"oauth_url":    "/auth/google/url",
			"providers":    "/auth/providers",
			"user_profile": "/user/profile",
			"workshops":    "/workshops",
		},
	})
}

// GoogleURL builds the provider authorize URL. GET reads redirect_to from the
// query string, POST from the JSON body.
func (h *AuthHandler) GoogleURL(c *fiber.Ctx) error {
	var redirectTo string
	if c.Method() == fiber.MethodPost {
		var req GoogleURLRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
			}
			if err := h.validate.Struct(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
			}
		}
		redirectTo = req.RedirectTo
	} else {
		redirectTo = c.Query("redirect_to")
	}

	oauthURL, effectiveRedirect, err := h.auth.AuthorizeURL(redirectTo)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Authentication service not configured",
			"message": "SUPABASE_URL not set",
		})
	}

	return c.JSON(fiber.Map{
		"provider":    "google",
		"oauth_url":   oauthURL,
		"redirect_to": effectiveRedirect,
	})
}

// ExtractToken parses an OAuth callback URL and returns the token bundle from
// its fragment.
func (h *AuthHandler) ExtractToken(c *fiber.Ctx) error {
	var req ExtractTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing callback_url in request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing callback_url in request body", "details": err.Error()})
	}

	bundle, err := h.auth.ExtractTokens(req.CallbackURL)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"tokens":  bundle,
		"usage": fiber.Map{
			"authorization_header": "Bearer " + bundle.AccessToken,
		},
	})
}

// Verify reports token validity instead of erroring, so the frontend can poll
// it without special-casing 401 bodies.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	token, err := bearerToken(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"valid": false, "error": err.Error()})
	}

	user, err := h.auth.Verify(c.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrProviderNotConfigured) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"valid": false, "error": err.Error()})
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"valid": false, "error": "Invalid or expired token"})
	}

	return c.JSON(fiber.Map{
		"valid":   true,
		"user":    user,
		"message": "Token is valid",
	})
}

// signoutInstructions is returned on both the success and warning paths, so
// clients clean up their stored token even when the provider call failed.
var signoutInstructions = fiber.Map{
	"client_cleanup": []string{
		"Remove token from localStorage/sessionStorage",
		"Clear any user state in your app",
		"Redirect to login page",
	},
}

// SignOut relays signout to the provider. Provider failures still succeed
// locally so clients always clean up their stored token.
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	if err := h.auth.SignOut(c.Context(), currentToken(c)); err != nil {
		log.Printf("Provider signout failed: %v", err)
		return c.JSON(fiber.Map{
			"status":       "warning",
			"message":      "Signed out locally (provider signout failed)",
			"instructions": signoutInstructions,
		})
	}

	return c.JSON(fiber.Map{
		"status":       "success",
		"message":      "Successfully signed out",
		"instructions": signoutInstructions,
	})
}
