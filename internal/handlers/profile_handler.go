package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/acadbuddy/acadbuddy-api/internal/repository"
	"github.com/acadbuddy/acadbuddy-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const maxAvatarSizeBytes = 5 * 1024 * 1024

type profileApplicationService interface {
	GetProfile(ctx context.Context, sess models.AuthSession) (*models.Profile, error)
	UpdateProfile(ctx context.Context, sess models.AuthSession, req repository.UpdateProfileInput) (*models.Profile, error)
	UploadAvatar(ctx context.Context, sess models.AuthSession, file multipart.File, originalName string) (*models.Profile, error)
}

type ProfileHandler struct {
	service profileApplicationService
	log     *zap.Logger
}

func NewProfileHandler(service profileApplicationService, log *zap.Logger) *ProfileHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileHandler{service: service, log: log}
}

type updateProfileRequest struct {
	FullName     *string   `json:"full_name" validate:"omitempty,min=2,max=100"`
	Department   *string   `json:"department"`
	Year         *string   `json:"year"`
	Bio          *string   `json:"bio" validate:"omitempty,max=500"`
	Subjects     *[]string `json:"subjects" validate:"omitempty,dive,required"`
	HourlyRate   *float64  `json:"hourly_rate" validate:"omitempty,gte=0,lte=1000"`
	Availability *string   `json:"availability"`
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	profile, err := h.service.GetProfile(c.Context(), sess)
	if err != nil {
		return h.mapProfileError(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.FullName = trimPtr(req.FullName)
	req.Bio = trimPtr(req.Bio)
	if stop, err := validateRequest(c, &req); stop {
		return err
	}

	profile, err := h.service.UpdateProfile(c.Context(), sess, repository.UpdateProfileInput{
		FullName:     req.FullName,
		Department:   trimPtr(req.Department),
		Year:         trimPtr(req.Year),
		Bio:          req.Bio,
		Subjects:     req.Subjects,
		HourlyRate:   req.HourlyRate,
		Availability: trimPtr(req.Availability),
	})
	if err != nil {
		return h.mapProfileError(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) UploadAvatar(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return badRequest(c, "avatar file is required")
	}
	if fileHeader.Size <= 0 {
		return badRequest(c, "avatar file is empty")
	}
	if fileHeader.Size > maxAvatarSizeBytes {
		return badRequest(c, "avatar file exceeds 5MB limit")
	}

	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return badRequest(c, "avatar must be a jpg, jpeg, png, or webp file")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open avatar file"})
	}
	defer file.Close()

	profile, err := h.service.UploadAvatar(c.Context(), sess, file, fileHeader.Filename)
	if err != nil {
		return h.mapProfileError(c, err)
	}
	return c.JSON(fiber.Map{
		"avatar_url": profile.AvatarURL,
		"profile":    profile,
	})
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

func (h *ProfileHandler) mapProfileError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	case errors.Is(err, services.ErrStorageUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage service is not configured"})
	case errors.Is(err, services.ErrInvalidInput):
		return badRequest(c, "Invalid request")
	default:
		h.log.Error("profile request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process profile request"})
	}
}
