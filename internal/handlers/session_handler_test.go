package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/acadbuddy/acadbuddy-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type stubSessionService struct {
	bookResult         *models.SessionDetail
	bookErr            error
	listResult         []models.SessionDetail
	listErr            error
	getResult          *models.SessionDetail
	getErr             error
	updateStatusResult *models.SessionDetail
	updateStatusErr    error
	lastBookInput      services.BookSessionInput
	lastSession        models.AuthSession
	lastSessionID      uuid.UUID
	lastAction         string
	lastStatus         string
	lastUpcomingOnly   bool
}

func (s *stubSessionService) BookSession(_ context.Context, sess models.AuthSession, input services.BookSessionInput) (*models.SessionDetail, error) {
	s.lastSession = sess
	s.lastBookInput = input
	return s.bookResult, s.bookErr
}

func (s *stubSessionService) ListSessions(_ context.Context, sess models.AuthSession, status string, upcomingOnly bool) ([]models.SessionDetail, error) {
	s.lastSession = sess
	s.lastStatus = status
	s.lastUpcomingOnly = upcomingOnly
	return s.listResult, s.listErr
}

func (s *stubSessionService) GetSession(_ context.Context, sess models.AuthSession, sessionID uuid.UUID) (*models.SessionDetail, error) {
	s.lastSession = sess
	s.lastSessionID = sessionID
	return s.getResult, s.getErr
}

func (s *stubSessionService) UpdateStatus(_ context.Context, sess models.AuthSession, sessionID uuid.UUID, action string) (*models.SessionDetail, error) {
	s.lastSession = sess
	s.lastSessionID = sessionID
	s.lastAction = action
	return s.updateStatusResult, s.updateStatusErr
}

func TestBookSessionReturnsCreatedSession(t *testing.T) {
	service := &stubSessionService{
		bookResult: &models.SessionDetail{
			Session: models.Session{
				ID:              uuid.New(),
				StudentID:       studentID,
				MentorID:        mentorID,
				ScheduledAt:     time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
				Status:          models.SessionPending,
				DurationMinutes: 60,
			},
		},
	}
	handler := NewSessionHandler(service)

	app := appWithSession(studentID, models.RoleStudent)
	app.Post("/api/v1/sessions", handler.BookSession)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{
		"mentor_id": "22222222-2222-4222-8222-222222222222",
		"date": "2025-03-01",
		"time": "10:00",
		"duration_minutes": 60,
		"subject": "Linear algebra"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastSession.UserID != studentID {
		t.Fatalf("expected student %s, got %s", studentID, service.lastSession.UserID)
	}
	if service.lastBookInput.MentorID != mentorID {
		t.Fatalf("expected mentor %s, got %s", mentorID, service.lastBookInput.MentorID)
	}
	if service.lastBookInput.Date != "2025-03-01" || service.lastBookInput.Time != "10:00" {
		t.Fatalf("unexpected date/time: %+v", service.lastBookInput)
	}
	if service.lastBookInput.DurationMinutes != 60 {
		t.Fatalf("expected 60 minutes, got %d", service.lastBookInput.DurationMinutes)
	}
}

func TestBookSessionReportsFieldErrors(t *testing.T) {
	service := &stubSessionService{}
	handler := NewSessionHandler(service)

	app := appWithSession(studentID, models.RoleStudent)
	app.Post("/api/v1/sessions", handler.BookSession)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{
		"mentor_id": "22222222-2222-4222-8222-222222222222",
		"date": "03/01/2025",
		"time": "10:00",
		"duration_minutes": 0
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	fields, ok := body["fields"].(map[string]any)
	if !ok {
		t.Fatalf("expected fields map, got %v", body)
	}
	if _, ok := fields["date"]; !ok {
		t.Fatalf("expected date error, got %v", fields)
	}
	if _, ok := fields["duration_minutes"]; !ok {
		t.Fatalf("expected duration_minutes error, got %v", fields)
	}
	if service.lastBookInput.MentorID != uuid.Nil {
		t.Fatal("service must not be called for invalid input")
	}
}

func TestBookSessionMapsUnknownMentor(t *testing.T) {
	handler := NewSessionHandler(&stubSessionService{bookErr: services.ErrMentorNotFound})

	app := appWithSession(studentID, models.RoleStudent)
	app.Post("/api/v1/sessions", handler.BookSession)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{
		"mentor_id": "22222222-2222-4222-8222-222222222222",
		"date": "2025-03-01",
		"time": "10:00",
		"duration_minutes": 60
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListSessionsPassesStatusAndTimeframe(t *testing.T) {
	service := &stubSessionService{
		listResult: []models.SessionDetail{{Session: models.Session{ID: uuid.New(), Status: models.SessionUpcoming}}},
	}
	handler := NewSessionHandler(service)

	app := appWithSession(mentorID, models.RoleMentor)
	app.Get("/api/v1/sessions", handler.ListSessions)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?status=upcoming&timeframe=upcoming", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastSession.Role != models.RoleMentor {
		t.Fatalf("expected mentor role, got %q", service.lastSession.Role)
	}
	if service.lastStatus != "upcoming" || !service.lastUpcomingOnly {
		t.Fatalf("unexpected filter: status=%q upcoming=%v", service.lastStatus, service.lastUpcomingOnly)
	}
}

func TestGetSessionReturnsNotFound(t *testing.T) {
	handler := NewSessionHandler(&stubSessionService{getErr: pgx.ErrNoRows})

	app := appWithSession(studentID, models.RoleStudent)
	app.Get("/api/v1/sessions/:id", handler.GetSession)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+uuid.NewString(), nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestUpdateStatusMapsInvalidTransition(t *testing.T) {
	service := &stubSessionService{updateStatusErr: services.ErrInvalidStateTransition}
	handler := NewSessionHandler(service)

	app := appWithSession(mentorID, models.RoleMentor)
	app.Put("/api/v1/sessions/:id/status", handler.UpdateStatus)

	sessionID := uuid.New()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/"+sessionID.String()+"/status", strings.NewReader(`{"action":"complete"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if service.lastAction != "complete" || service.lastSessionID != sessionID {
		t.Fatalf("unexpected call: action=%q id=%s", service.lastAction, service.lastSessionID)
	}
}

func TestSessionRoutesRejectUnknownRole(t *testing.T) {
	handler := NewSessionHandler(&stubSessionService{})

	app := appWithSession(studentID, "coach")
	app.Get("/api/v1/sessions", handler.ListSessions)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
