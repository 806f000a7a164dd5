package handlers

import (
	"errors"
	"strconv"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var errInvalidSession = errors.New("invalid session")

// parseSession builds the caller's session from the locals set by
// middleware.AuthRequired.
func parseSession(c *fiber.Ctx) (models.AuthSession, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return models.AuthSession{}, errInvalidSession
	}
	role, ok := c.Locals("role").(string)
	if !ok || (role != models.RoleStudent && role != models.RoleMentor) {
		return models.AuthSession{}, errInvalidSession
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return models.AuthSession{}, errInvalidSession
	}
	return models.AuthSession{UserID: userID, Role: role}, nil
}

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
