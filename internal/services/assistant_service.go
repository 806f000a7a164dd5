package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	MaxAssistantMessages = 50

	msgInvalidFormat    = "Invalid messages format. Expected non-empty array."
	msgTooManyMessages  = "Too many messages. Maximum 50 per request."
	msgInvalidStructure = "Invalid message structure"
	msgMissingFields    = "Each message must have 'role' and 'content'"
	msgInvalidRole      = "Invalid message role. Must be 'user' or 'assistant'"
	msgInvalidContent   = "Message content must be a string under 10000 characters"

	msgRateLimited      = "Rate limit exceeded. Please try again in a moment."
	msgCreditsExhausted = "AI credits exhausted. Please add credits to continue."
	msgUpstreamFailed   = "Failed to get AI response"
)

const studyAssistantPrompt = `You are AcadBuddy's AI Study Assistant - a friendly, knowledgeable tutor designed to help college students learn effectively.

Your capabilities:
- Explain complex concepts in simple terms
- Help with homework and assignments across all subjects
- Provide study tips and learning strategies
- Suggest when a student might benefit from connecting with a human mentor
- Answer questions about various academic subjects

Guidelines:
- Be encouraging and supportive
- Break down complex topics into digestible parts
- Use examples and analogies when helpful
- If a topic requires hands-on guidance or extended tutoring, suggest the student connect with a mentor on AcadBuddy
- Keep responses focused and concise
- Use markdown formatting for better readability

When you sense a student needs more personalized help (complex project work, exam preparation, or ongoing tutoring), mention that AcadBuddy has expert mentors available who can provide one-on-one guidance.`

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AssistantError is a failure with the HTTP status and message the caller
// should see.
type AssistantError struct {
	Status  int
	Message string
}

func (e *AssistantError) Error() string {
	return fmt.Sprintf("assistant: %d %s", e.Status, e.Message)
}

func badRequest(message string) *AssistantError {
	return &AssistantError{Status: http.StatusBadRequest, Message: message}
}

// ParseChatRequest decodes and validates a {"messages": [...]} body. Checks
// run in a fixed order and the first failure wins.
func ParseChatRequest(body []byte) ([]ChatMessage, error) {
	var envelope struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, badRequest(msgInvalidFormat)
	}

	var raw []json.RawMessage
	if len(envelope.Messages) == 0 || json.Unmarshal(envelope.Messages, &raw) != nil || len(raw) == 0 {
		return nil, badRequest(msgInvalidFormat)
	}
	if len(raw) > MaxAssistantMessages {
		return nil, badRequest(msgTooManyMessages)
	}

	messages := make([]ChatMessage, 0, len(raw))
	for _, item := range raw {
		// arrays are objects without role or content
		if trimmed := bytes.TrimSpace(item); len(trimmed) > 0 && trimmed[0] == '[' {
			return nil, badRequest(msgMissingFields)
		}
		var fields map[string]json.RawMessage
		if json.Unmarshal(item, &fields) != nil || fields == nil {
			return nil, badRequest(msgInvalidStructure)
		}
		if !truthy(fields["role"]) || !truthy(fields["content"]) {
			return nil, badRequest(msgMissingFields)
		}

		var role string
		if json.Unmarshal(fields["role"], &role) != nil || (role != "user" && role != "assistant") {
			return nil, badRequest(msgInvalidRole)
		}

		var content string
		if json.Unmarshal(fields["content"], &content) != nil || utf8.RuneCountInString(content) > MaxContentLength {
			return nil, badRequest(msgInvalidContent)
		}

		messages = append(messages, ChatMessage{Role: role, Content: content})
	}
	return messages, nil
}

// truthy reports whether a JSON value would count as present: not missing,
// null, false, any spelling of zero or an empty string.
func truthy(value json.RawMessage) bool {
	switch strings.TrimSpace(string(value)) {
	case "", "null", "false", `""`:
		return false
	}
	var number float64
	if json.Unmarshal(value, &number) == nil {
		return number != 0
	}
	return true
}

// SanitizeMessages trims every turn and caps it at MaxContentLength
// characters.
func SanitizeMessages(messages []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if utf8.RuneCountInString(content) > MaxContentLength {
			content = string([]rune(content)[:MaxContentLength])
		}
		out = append(out, ChatMessage{Role: m.Role, Content: content})
	}
	return out
}

type AssistantConfig struct {
	GatewayURL  string
	APIKey      string
	Model       string
	MaxFailures int
	OpenTimeout time.Duration
}

type AssistantService struct {
	cfg    AssistantConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker
	log    *zap.Logger
}

func NewAssistantService(cfg AssistantConfig, log *zap.Logger) *AssistantService {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	st := gobreaker.Settings{
		Name:        "study-assistant",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.MaxFailures)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Info("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}

	transport := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &AssistantService{
		cfg:    cfg,
		client: &http.Client{Transport: transport},
		cb:     gobreaker.NewCircuitBreaker(st),
		log:    log,
	}
}

type upstreamStatusError struct {
	status int
	body   string
}

func (e *upstreamStatusError) Error() string {
	return fmt.Sprintf("upstream status %d", e.status)
}

// Stream sends the conversation upstream and returns the event stream body.
// The caller closes it. Failures are *AssistantError values.
func (s *AssistantService) Stream(ctx context.Context, messages []ChatMessage) (io.ReadCloser, error) {
	if s.cfg.APIKey == "" {
		return nil, &AssistantError{Status: http.StatusInternalServerError, Message: "AI_API_KEY is not configured"}
	}

	payload, err := json.Marshal(map[string]any{
		"model":    s.cfg.Model,
		"messages": append([]ChatMessage{{Role: "system", Content: studyAssistantPrompt}}, SanitizeMessages(messages)...),
		"stream":   true,
	})
	if err != nil {
		return nil, &AssistantError{Status: http.StatusInternalServerError, Message: err.Error()}
	}

	s.log.Info("forwarding study assistant request", zap.Int("messages", len(messages)))

	result, err := s.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.GatewayURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			resp.Body.Close()
			return nil, &upstreamStatusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
		}
		return resp, nil
	})
	if err != nil {
		var statusErr *upstreamStatusError
		switch {
		case errors.As(err, &statusErr):
			s.log.Error("ai gateway error", zap.Int("status", statusErr.status), zap.String("body", statusErr.body))
			return nil, &AssistantError{Status: http.StatusInternalServerError, Message: msgUpstreamFailed}
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			s.log.Warn("ai gateway short-circuited", zap.Error(err))
			return nil, &AssistantError{Status: http.StatusInternalServerError, Message: msgUpstreamFailed}
		default:
			s.log.Error("ai gateway request failed", zap.Error(err))
			return nil, &AssistantError{Status: http.StatusInternalServerError, Message: err.Error()}
		}
	}

	resp := result.(*http.Response)
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return resp.Body, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	resp.Body.Close()
	s.log.Error("ai gateway error", zap.Int("status", resp.StatusCode), zap.String("body", strings.TrimSpace(string(body))))

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return nil, &AssistantError{Status: http.StatusTooManyRequests, Message: msgRateLimited}
	case http.StatusPaymentRequired:
		return nil, &AssistantError{Status: http.StatusPaymentRequired, Message: msgCreditsExhausted}
	default:
		return nil, &AssistantError{Status: http.StatusInternalServerError, Message: msgUpstreamFailed}
	}
}

// StreamDone terminates an upstream event stream.
const StreamDone = "[DONE]"

// ReadStream parses an OpenAI style event stream and calls onDelta with every
// non-empty choices[0].delta.content chunk until the [DONE] sentinel or EOF.
// Comment lines, blank lines and undecodable events are skipped.
func ReadStream(r io.Reader, onDelta func(string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == StreamDone {
			return nil
		}

		var event struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}
		if len(event.Choices) == 0 || event.Choices[0].Delta.Content == "" {
			continue
		}
		if err := onDelta(event.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
	return scanner.Err()
}
