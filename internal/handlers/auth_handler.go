package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/acadbuddy/acadbuddy-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type authApplicationService interface {
	Signup(ctx context.Context, input services.SignupInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Refresh(ctx context.Context, sess models.AuthSession) (*services.AuthResult, error)
}

type AuthHandler struct {
	service authApplicationService
	log     *zap.Logger
}

func NewAuthHandler(service authApplicationService, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{service: service, log: log}
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if stop, err := validateRequest(c, &req); stop {
		return err
	}

	result, err := h.service.Signup(c.Context(), services.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return h.mapAuthError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Email = strings.TrimSpace(req.Email)
	if stop, err := validateRequest(c, &req); stop {
		return err
	}

	result, err := h.service.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return h.mapAuthError(c, err)
	}
	return c.JSON(result)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	result, err := h.service.Refresh(c.Context(), sess)
	if err != nil {
		return h.mapAuthError(c, err)
	}
	return c.JSON(fiber.Map{
		"user":    result.User,
		"profile": result.Profile,
		"role":    sess.Role,
	})
}

func (h *AuthHandler) mapAuthError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already exists"})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	default:
		h.log.Error("auth request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process authentication request"})
	}
}
