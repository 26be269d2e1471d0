package api

import (
	"net/url"

	"workshop-service/internal/s3"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type UserHandler struct {
	presigner *s3.AvatarPresigner
}

// NewUserHandler accepts a nil presigner; avatar uploads are then reported as
// unavailable instead of failing at startup.
func NewUserHandler(presigner *s3.AvatarPresigner) *UserHandler {
	return &UserHandler{presigner: presigner}
}

// Profile returns the authenticated user's local row. The avatar falls back
// to a generated placeholder when the provider supplied none.
func (h *UserHandler) Profile(c *fiber.Ctx) error {
	user := currentUser(c)

	avatar := ""
	if user.AvatarURL != nil {
		avatar = *user.AvatarURL
	} else {
		avatar = "https://ui-avatars.com/api/?name=" + url.QueryEscape(user.Name)
	}

	return c.JSON(fiber.Map{
		"id":           user.ID,
		"name":         user.Name,
		"email":        user.Email,
		"role":         user.Role,
		"created_date": user.CreatedDate,
		"avatar_url":   avatar,
	})
}

// AvatarUploadURL returns a presigned PUT URL for a fresh avatar object.
func (h *UserHandler) AvatarUploadURL(c *fiber.Ctx) error {
	if h.presigner == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Avatar uploads are not configured"})
	}

	user := currentUser(c)
	objectKey := s3.AvatarObjectKey(user.ID, uuid.New().String())

	uploadURL, err := h.presigner.PresignUpload(c.Context(), objectKey)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not generate upload URL"})
	}

	return c.JSON(fiber.Map{
		"upload_url":      uploadURL,
		"final_image_url": h.presigner.ObjectURL(objectKey),
	})
}
