package handlers

import (
	"context"
	"errors"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/acadbuddy/acadbuddy-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type dashboardApplicationService interface {
	StudentDashboard(ctx context.Context, sess models.AuthSession) (*models.StudentDashboard, error)
	MentorDashboard(ctx context.Context, sess models.AuthSession) (*models.MentorDashboard, error)
}

type availabilityApplicationService interface {
	List(ctx context.Context, sess models.AuthSession) ([]models.AvailabilitySlot, error)
	ToggleSlot(ctx context.Context, sess models.AuthSession, dayOfWeek int, slotIndex int) (*models.AvailabilitySlot, error)
}

type DashboardHandler struct {
	dashboards   dashboardApplicationService
	availability availabilityApplicationService
	log          *zap.Logger
}

func NewDashboardHandler(
	dashboards dashboardApplicationService,
	availability availabilityApplicationService,
	log *zap.Logger,
) *DashboardHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &DashboardHandler{dashboards: dashboards, availability: availability, log: log}
}

type toggleSlotRequest struct {
	DayOfWeek *int `json:"day_of_week" validate:"required,gte=0,lte=6"`
	Slot      *int `json:"slot" validate:"required,gte=0,lte=2"`
}

func (h *DashboardHandler) Student(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	dashboard, err := h.dashboards.StudentDashboard(c.Context(), sess)
	if err != nil {
		return h.mapDashboardError(c, err)
	}
	return c.JSON(dashboard)
}

func (h *DashboardHandler) Mentor(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	dashboard, err := h.dashboards.MentorDashboard(c.Context(), sess)
	if err != nil {
		return h.mapDashboardError(c, err)
	}
	return c.JSON(dashboard)
}

func (h *DashboardHandler) ListAvailability(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	slots, err := h.availability.List(c.Context(), sess)
	if err != nil {
		return h.mapDashboardError(c, err)
	}
	return c.JSON(fiber.Map{
		"slots":         slots,
		"default_slots": services.DefaultSlots,
	})
}

func (h *DashboardHandler) ToggleAvailability(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	var req toggleSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if stop, err := validateRequest(c, &req); stop {
		return err
	}

	slot, err := h.availability.ToggleSlot(c.Context(), sess, *req.DayOfWeek, *req.Slot)
	if err != nil {
		return h.mapDashboardError(c, err)
	}
	return c.JSON(fiber.Map{"slot": slot})
}

func (h *DashboardHandler) mapDashboardError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return badRequest(c, "Invalid request")
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Slot was changed concurrently, please retry"})
	default:
		h.log.Error("dashboard request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load dashboard"})
	}
}
