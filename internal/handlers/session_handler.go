package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/acadbuddy/acadbuddy-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SessionHandler struct {
	service sessionApplicationService
}

type sessionApplicationService interface {
	BookSession(ctx context.Context, sess models.AuthSession, input services.BookSessionInput) (*models.SessionDetail, error)
	ListSessions(ctx context.Context, sess models.AuthSession, status string, upcomingOnly bool) ([]models.SessionDetail, error)
	GetSession(ctx context.Context, sess models.AuthSession, sessionID uuid.UUID) (*models.SessionDetail, error)
	UpdateStatus(ctx context.Context, sess models.AuthSession, sessionID uuid.UUID, action string) (*models.SessionDetail, error)
}

func NewSessionHandler(service sessionApplicationService) *SessionHandler {
	return &SessionHandler{service: service}
}

type bookSessionRequest struct {
	MentorID        string  `json:"mentor_id" validate:"required,uuid"`
	Date            string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string  `json:"time" validate:"required,datetime=15:04"`
	DurationMinutes int     `json:"duration_minutes" validate:"required,gt=0,lte=480"`
	Subject         *string `json:"subject" validate:"omitempty,max=200"`
	Notes           *string `json:"notes" validate:"omitempty,max=2000"`
}

type updateSessionStatusRequest struct {
	Action string `json:"action"`
	Status string `json:"status"`
}

func (h *SessionHandler) BookSession(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	var req bookSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.MentorID = strings.TrimSpace(req.MentorID)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	if stop, err := validateRequest(c, &req); stop {
		return err
	}
	mentorID, err := uuid.Parse(req.MentorID)
	if err != nil {
		return badRequest(c, "Invalid mentor id")
	}

	detail, err := h.service.BookSession(c.Context(), sess, services.BookSessionInput{
		MentorID:        mentorID,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: req.DurationMinutes,
		Subject:         req.Subject,
		Notes:           req.Notes,
	})
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": detail})
}

// ListSessions accepts an optional status filter and timeframe=upcoming.
func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	timeframe := strings.TrimSpace(c.Query("timeframe"))
	if timeframe != "" && timeframe != "upcoming" {
		return badRequest(c, "timeframe must be upcoming")
	}

	sessions, err := h.service.ListSessions(c.Context(), sess, strings.TrimSpace(c.Query("status")), timeframe == "upcoming")
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	sessionID, err := parseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid session id")
	}

	session, err := h.service.GetSession(c.Context(), sess, sessionID)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

// UpdateStatus takes the mentor action (accept, decline, complete) or a
// student cancel, in either the action or the status field.
func (h *SessionHandler) UpdateStatus(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	sessionID, err := parseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid session id")
	}

	var req updateSessionStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	action := strings.TrimSpace(req.Action)
	if action == "" {
		action = strings.TrimSpace(req.Status)
	}
	if action == "" {
		return badRequest(c, "action is required")
	}

	session, err := h.service.UpdateStatus(c.Context(), sess, sessionID, action)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func mapSessionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrMentorNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Mentor not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process session request"})
	}
}
