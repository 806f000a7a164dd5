package handlers

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/acadbuddy/acadbuddy-api/internal/metrics"
	"github.com/acadbuddy/acadbuddy-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type assistantApplicationService interface {
	Stream(ctx context.Context, messages []services.ChatMessage) (io.ReadCloser, error)
}

// AssistantHandler proxies study assistant conversations to the AI gateway
// and relays the event stream unchanged.
type AssistantHandler struct {
	service assistantApplicationService
	log     *zap.Logger
}

func NewAssistantHandler(service assistantApplicationService, log *zap.Logger) *AssistantHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AssistantHandler{service: service, log: log}
}

func (h *AssistantHandler) Chat(c *fiber.Ctx) error {
	messages, err := services.ParseChatRequest(c.Body())
	if err != nil {
		return h.fail(c, err)
	}

	// The upstream request must outlive the handler while the body streams.
	stream, err := h.service.Stream(context.Background(), messages)
	if err != nil {
		return h.fail(c, err)
	}
	metrics.AssistantRequests.WithLabelValues(strconv.Itoa(fiber.StatusOK)).Inc()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Status(fiber.StatusOK)

	log := h.log
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer stream.Close()
		if err := relay(w, stream); err != nil {
			log.Warn("assistant stream interrupted", zap.Error(err))
		}
	})
	return nil
}

// relay copies the upstream body chunk by chunk, flushing after each read.
func relay(w *bufio.Writer, r io.Reader) error {
	buf := make([]byte, 4096)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

func (h *AssistantHandler) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := err.Error()

	var assistantErr *services.AssistantError
	if errors.As(err, &assistantErr) {
		status = assistantErr.Status
		message = assistantErr.Message
	}

	metrics.AssistantRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	if status >= fiber.StatusInternalServerError {
		h.log.Error("study assistant request failed", zap.Int("status", status), zap.String("error", message))
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}
