package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/acadbuddy/acadbuddy-api/internal/middleware"
	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/acadbuddy/acadbuddy-api/internal/services"
	chatws "github.com/acadbuddy/acadbuddy-api/internal/websocket"
	"github.com/acadbuddy/acadbuddy-api/pkg/utils"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type chatApplicationService interface {
	ListConversations(ctx context.Context, sess models.AuthSession) []models.Conversation
	OpenThread(ctx context.Context, sess models.AuthSession, partnerID uuid.UUID, loc *time.Location) (*models.ThreadView, error)
	Send(ctx context.Context, sess models.AuthSession, receiverID uuid.UUID, content string) (*models.Message, error)
	MarkRead(ctx context.Context, sess models.AuthSession, ids []uuid.UUID) (models.ReadReceipt, error)
}

type ChatHandler struct {
	service   chatApplicationService
	hub       *chatws.Hub
	jwtSecret string
	loc       *time.Location
	log       *zap.Logger
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

type markReadRequest struct {
	IDs []string `json:"ids"`
}

func NewChatHandler(
	service chatApplicationService,
	hub *chatws.Hub,
	jwtSecret string,
	loc *time.Location,
	log *zap.Logger,
) *ChatHandler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatHandler{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
		loc:       loc,
		log:       log,
	}
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	return c.JSON(fiber.Map{"conversations": h.service.ListConversations(c.Context(), sess)})
}

// OpenThread returns the history with a partner grouped by day in the
// caller's time zone (tz query parameter) and marks it read.
func (h *ChatHandler) OpenThread(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	partnerID, err := parseUUIDParam(c, "partnerId")
	if err != nil {
		return badRequest(c, "Invalid partner id")
	}

	loc := h.loc
	if tz := strings.TrimSpace(c.Query("tz")); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return badRequest(c, "Invalid time zone")
		}
		loc = parsed
	}

	view, err := h.service.OpenThread(c.Context(), sess, partnerID, loc)
	if err != nil {
		return h.mapChatError(c, err)
	}
	return c.JSON(view)
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	receiverID, err := uuid.Parse(strings.TrimSpace(req.ReceiverID))
	if err != nil {
		return badRequest(c, "Invalid receiver id")
	}

	message, err := h.service.Send(c.Context(), sess, receiverID, req.Content)
	if err != nil {
		return h.mapChatError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message})
}

func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	sess, err := parseSession(c)
	if err != nil {
		return unauthorized(c)
	}

	var req markReadRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return badRequest(c, "Invalid message id")
		}
		ids = append(ids, id)
	}

	receipt, err := h.service.MarkRead(c.Context(), sess, ids)
	if err != nil {
		return h.mapChatError(c, err)
	}
	return c.JSON(receipt)
}

func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	if tz := strings.TrimSpace(c.Query("tz")); tz != "" {
		c.Locals("tz", tz)
	}
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	userIDStr, _ := conn.Locals("user_id").(string)
	role, _ := conn.Locals("role").(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		_ = conn.Close()
		return
	}

	loc := h.loc
	if tz, ok := conn.Locals("tz").(string); ok {
		if parsed, err := time.LoadLocation(tz); err == nil {
			loc = parsed
		}
	}

	sess := models.AuthSession{UserID: userID, Role: role}
	subscriber := chatws.NewSubscriber(h.hub, conn, sess, h.service, loc, h.log)
	subscriber.Serve(context.Background())
}

func (h *ChatHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		if bearer, ok := middleware.BearerToken(c.Get("Authorization")); ok {
			tokenString = bearer
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

func (h *ChatHandler) mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrEmptyContent):
		return badRequest(c, "Message content is required")
	case errors.Is(err, services.ErrContentTooLong):
		return badRequest(c, "Message content must be under 10000 characters")
	case errors.Is(err, services.ErrSelfMessage):
		return badRequest(c, "You cannot message yourself")
	case errors.Is(err, services.ErrInvalidInput):
		return badRequest(c, "Invalid request")
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	default:
		h.log.Error("chat request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
