package api

import (
	"errors"
	"log"
	"strconv"

	"workshop-service/internal/repository"
	"workshop-service/internal/service"

	"github.com/gofiber/fiber/v2"
)

type WorkshopHandler struct {
	workshops service.WorkshopService
}

func NewWorkshopHandler(workshops service.WorkshopService) *WorkshopHandler {
	return &WorkshopHandler{workshops: workshops}
}

// WorkshopListItem is the compact list representation: identity plus derived
// remaining capacity.
type WorkshopListItem struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Vacant int    `json:"vacant"`
}

// List returns all workshops, optionally filtered by one or more ?skill=
// query parameters.
func (h *WorkshopHandler) List(c *fiber.Ctx) error {
	skills := queryValues(c, "skill")

	workshops, err := h.workshops.List(c.Context(), skills)
	if err != nil {
		log.Printf("Error listing workshops: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch workshops"})
	}

	items := make([]WorkshopListItem, 0, len(workshops))
	for _, w := range workshops {
		items = append(items, WorkshopListItem{ID: w.ID, Title: w.Title, Vacant: w.Vacant})
	}
	return c.JSON(items)
}

func (h *WorkshopHandler) Get(c *fiber.Ctx) error {
	id, err := workshopID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid workshop ID"})
	}

	workshop, err := h.workshops.Get(c.Context(), id)
	if err != nil {
		return h.storeError(c, err, "Could not fetch workshop")
	}

	return c.JSON(fiber.Map{
		"id":               workshop.ID,
		"title":            workshop.Title,
		"description":      workshop.Description,
		"session_datetime": workshop.SessionDateTime,
		"duration_mins":    workshop.DurationMin,
		"capacity":         workshop.MaxCapacity,
		"vacant":           workshop.Vacant,
	})
}

// Signup registers the authenticated user, reactivating a cancelled
// registration when one exists.
func (h *WorkshopHandler) Signup(c *fiber.Ctx) error {
	id, err := workshopID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid workshop ID"})
	}

	result, err := h.workshops.Signup(c.Context(), currentUser(c).ID, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrWorkshopNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, repository.ErrAlreadyRegistered):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Already signed up"})
		case errors.Is(err, repository.ErrWorkshopFull):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Workshop capacity exceeded"})
		default:
			log.Printf("Error signing up for workshop %d: %v", id, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not sign up"})
		}
	}

	return c.JSON(fiber.Map{
		"status":          "Signed up successfully",
		"action":          result.Action,
		"workshop_status": result.Status,
	})
}

// Cancel transitions the registration to cancelled. Cancelling twice, or
// cancelling a registration that was never held, is a no-op success.
func (h *WorkshopHandler) Cancel(c *fiber.Ctx) error {
	id, err := workshopID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid workshop ID"})
	}

	result, err := h.workshops.Cancel(c.Context(), currentUser(c).ID, id)
	if err != nil {
		log.Printf("Error cancelling registration for workshop %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not cancel registration"})
	}

	resp := fiber.Map{"status": result.Status}
	if result.Previous != nil {
		resp["previous_status"] = *result.Previous
	}
	return c.JSON(resp)
}

func (h *WorkshopHandler) RegistrationStatus(c *fiber.Ctx) error {
	id, err := workshopID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid workshop ID"})
	}

	state, err := h.workshops.RegistrationState(c.Context(), currentUser(c).ID, id)
	if err != nil {
		log.Printf("Error fetching registration status for workshop %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch registration status"})
	}

	if state.Status == nil {
		return c.JSON(fiber.Map{"registered": false, "status": "Not registered"})
	}

	return c.JSON(fiber.Map{
		"registered":    state.Registered,
		"status":        *state.Status,
		"registered_at": state.RegisteredAt,
		"can_signup":    state.CanSignup,
		"can_cancel":    state.CanCancel,
	})
}

func (h *WorkshopHandler) Vacant(c *fiber.Ctx) error {
	id, err := workshopID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid workshop ID"})
	}

	vacant, err := h.workshops.Vacant(c.Context(), id)
	if err != nil {
		return h.storeError(c, err, "Could not fetch capacity")
	}
	return c.JSON(fiber.Map{"vacant": vacant})
}

func (h *WorkshopHandler) BySkill(c *fiber.Ctx) error {
	skill := c.Query("skill")
	if skill == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing skill query parameter"})
	}

	workshops, err := h.workshops.BySkill(c.Context(), skill)
	if err != nil {
		log.Printf("Error listing workshops by skill %q: %v", skill, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch workshops"})
	}

	items := make([]fiber.Map, 0, len(workshops))
	for _, w := range workshops {
		items = append(items, fiber.Map{"id": w.ID, "title": w.Title})
	}
	return c.JSON(items)
}

func (h *WorkshopHandler) ByUserSkills(c *fiber.Ctx) error {
	workshops, err := h.workshops.MatchingUserSkills(c.Context(), currentUser(c).ID)
	if err != nil {
		log.Printf("Error matching workshops to user skills: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch workshops"})
	}

	items := make([]fiber.Map, 0, len(workshops))
	for _, w := range workshops {
		items = append(items, fiber.Map{"id": w.ID, "title": w.Title})
	}
	return c.JSON(items)
}

func (h *WorkshopHandler) storeError(c *fiber.Ctx, err error, fallback string) error {
	if errors.Is(err, repository.ErrWorkshopNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	log.Printf("%s: %v", fallback, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
}

func workshopID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

func queryValues(c *fiber.Ctx, key string) []string {
	var values []string
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		if string(k) == key && len(v) > 0 {
			values = append(values, string(v))
		}
	})
	return values
}
