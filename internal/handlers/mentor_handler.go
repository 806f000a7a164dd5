package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/acadbuddy/acadbuddy-api/internal/repository"
	"github.com/acadbuddy/acadbuddy-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mentorApplicationService interface {
	ListMentors(ctx context.Context, filter services.MentorFilter) ([]models.MentorListResponse, error)
	GetMentor(ctx context.Context, mentorID uuid.UUID) (*models.MentorDetailResponse, error)
	ContactMentor(ctx context.Context, sess models.AuthSession, mentorID uuid.UUID, message string) (*models.MentorContact, error)
}

type mentorApplicationProfiles interface {
	BecomeMentor(ctx context.Context, sess models.AuthSession, req repository.BecomeMentorInput) (*models.Profile, error)
}

type tokenRefresher interface {
	Refresh(ctx context.Context, sess models.AuthSession) (*services.AuthResult, error)
}

type MentorHandler struct {
	service  mentorApplicationService
	profiles mentorApplicationProfiles
	auth     tokenRefresher
	log      *zap.Logger
}

func NewMentorHandler(
	service mentorApplicationService,
	profiles mentorApplicationProfiles,
	auth tokenRefresher,
	log *zap.Logger,
) *MentorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MentorHandler{service: service, profiles: profiles, auth: auth, log: log}
}

type contactMentorRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type becomeMentorRequest struct {
	FullName     string   `json:"full_name" validate:"required,min=2,max=100"`
	Department   string   `json:"department" validate:"required"`
	Year         string   `json:"year" validate:"required"`
	Bio          string   `json:"bio" validate:"required,min=50,max=500"`
	Subjects     []string `json:"subjects" validate:"required,min=1,dive,required"`
	HourlyRate   *float64 `json:"hourly_rate" validate:"required,gte=0,lte=1000"`
	Availability string   `json:"availability" validate:"required"`
}

// ListMentors filters the mentor directory by the q, department, subjects,
// min_price, max_price and sort query parameters.
func (h *MentorHandler) ListMentors(c *fiber.Ctx) error {
	filter := services.DefaultMentorFilter()
	filter.Query = strings.TrimSpace(c.Query("q"))
	if department := strings.TrimSpace(c.Query("department")); department != "" {
		filter.Department = department
	}
	if raw := strings.TrimSpace(c.Query("subjects")); raw != "" {
		for _, subject := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(subject); trimmed != "" {
				filter.Subjects = append(filter.Subjects, trimmed)
			}
		}
	}

	var err error
	if filter.MinPrice, err = parsePrice(c.Query("min_price"), filter.MinPrice); err != nil {
		return badRequest(c, "min_price must be a number 0 or greater")
	}
	if filter.MaxPrice, err = parsePrice(c.Query("max_price"), filter.MaxPrice); err != nil {
		return badRequest(c, "max_price must be a number 0 or greater")
	}
	if filter.MinPrice > filter.MaxPrice {
		return badRequest(c, "min_price must not exceed max_price")
	}

	switch sortBy := strings.TrimSpace(c.Query("sort")); sortBy {
	case "":
	case services.SortRating, services.SortPriceLow, services.SortPriceHigh, services.SortReviews:
		filter.Sort = sortBy
	default:
		return badRequest(c, "Invalid sort option")
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	mentors, err := h.service.ListMentors(c.Context(), filter)
	if err != nil {
		return h.mapMentorError(c, err)
	}

	return c.JSON(fiber.Map{
		"mentors":    paginate(mentors, page, limit),
		"pagination": buildPaginationMeta(page, limit, len(mentors)),
	})
}

func (h *MentorHandler) GetMentor(c *fiber.Ctx) error {
	mentorID, err := parseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid mentor id")
	}

	mentor, err := h.service.GetMentor(c.Context(), mentorID)
	if err != nil {
		return h.mapMentorError(c, err)
	}
	return c.JSON(fiber.Map{"mentor": mentor})
}

func (h *MentorHandler) ContactMentor(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}
	mentorID, err := parseUUIDParam(c, "id")
	if err != nil {
		return badRequest(c, "Invalid mentor id")
	}

	var req contactMentorRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Message = strings.TrimSpace(req.Message)
	if stop, err := validateRequest(c, &req); stop {
		return err
	}

	contact, err := h.service.ContactMentor(c.Context(), sess, mentorID, req.Message)
	if err != nil {
		return h.mapMentorError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"contact": contact})
}

// Apply promotes the caller to mentor and returns a token carrying the new
// role.
func (h *MentorHandler) Apply(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	var req becomeMentorRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Department = strings.TrimSpace(req.Department)
	req.Year = strings.TrimSpace(req.Year)
	req.Bio = strings.TrimSpace(req.Bio)
	req.Availability = strings.TrimSpace(req.Availability)
	for i := range req.Subjects {
		req.Subjects[i] = strings.TrimSpace(req.Subjects[i])
	}
	if stop, err := validateRequest(c, &req); stop {
		return err
	}

	profile, err := h.profiles.BecomeMentor(c.Context(), sess, repository.BecomeMentorInput{
		FullName:     req.FullName,
		Department:   req.Department,
		Year:         req.Year,
		Bio:          req.Bio,
		Subjects:     req.Subjects,
		HourlyRate:   *req.HourlyRate,
		Availability: req.Availability,
	})
	if err != nil {
		return h.mapMentorError(c, err)
	}

	refreshed, err := h.auth.Refresh(c.Context(), models.AuthSession{UserID: sess.UserID, Role: models.RoleMentor})
	if err != nil {
		return h.mapMentorError(c, err)
	}
	return c.JSON(fiber.Map{
		"profile": profile,
		"token":   refreshed.Token,
	})
}

func parsePrice(raw string, fallback float64) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return 0, services.ErrInvalidInput
	}
	return value, nil
}

func (h *MentorHandler) mapMentorError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrMentorNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Mentor not found"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	case errors.Is(err, services.ErrInvalidInput):
		return badRequest(c, "Invalid request")
	default:
		h.log.Error("mentor request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process mentor request"})
	}
}
