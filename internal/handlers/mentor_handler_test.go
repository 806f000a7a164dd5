package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/acadbuddy/acadbuddy-api/internal/repository"
	"github.com/acadbuddy/acadbuddy-api/internal/services"
	"github.com/google/uuid"
)

type stubMentorService struct {
	listResult    []models.MentorListResponse
	lastFilter    services.MentorFilter
	detailErr     error
	contactResult *models.MentorContact
	lastMessage   string
}

func (s *stubMentorService) ListMentors(_ context.Context, filter services.MentorFilter) ([]models.MentorListResponse, error) {
	s.lastFilter = filter
	return s.listResult, nil
}

func (s *stubMentorService) GetMentor(_ context.Context, id uuid.UUID) (*models.MentorDetailResponse, error) {
	if s.detailErr != nil {
		return nil, s.detailErr
	}
	return &models.MentorDetailResponse{MentorListResponse: models.MentorListResponse{UserID: id.String()}}, nil
}

func (s *stubMentorService) ContactMentor(_ context.Context, sess models.AuthSession, mentor uuid.UUID, message string) (*models.MentorContact, error) {
	s.lastMessage = message
	return s.contactResult, nil
}

type stubMentorProfiles struct {
	calls     int
	lastInput repository.BecomeMentorInput
}

func (s *stubMentorProfiles) BecomeMentor(_ context.Context, sess models.AuthSession, req repository.BecomeMentorInput) (*models.Profile, error) {
	s.calls++
	s.lastInput = req
	return &models.Profile{UserID: sess.UserID, Role: models.RoleMentor}, nil
}

type stubRefresher struct{}

func (stubRefresher) Refresh(_ context.Context, sess models.AuthSession) (*services.AuthResult, error) {
	return &services.AuthResult{Token: "refreshed-" + sess.Role}, nil
}

func TestListMentorsParsesFiltersAndPaginates(t *testing.T) {
	service := &stubMentorService{
		listResult: []models.MentorListResponse{{FullName: "A"}, {FullName: "B"}, {FullName: "C"}},
	}
	handler := NewMentorHandler(service, &stubMentorProfiles{}, stubRefresher{}, nil)

	app := appWithSession(studentID, models.RoleStudent)
	app.Get("/api/v1/mentors", handler.ListMentors)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/mentors?q=calc&department=Mathematics&subjects=Calculus,%20Algebra&min_price=10&max_price=50&sort=price-low&page=2&limit=2", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	filter := service.lastFilter
	if filter.Query != "calc" || filter.Department != "Mathematics" || filter.Sort != services.SortPriceLow {
		t.Fatalf("unexpected filter: %+v", filter)
	}
	if len(filter.Subjects) != 2 || filter.Subjects[1] != "Algebra" {
		t.Fatalf("unexpected subjects: %v", filter.Subjects)
	}
	if filter.MinPrice != 10 || filter.MaxPrice != 50 {
		t.Fatalf("unexpected price range: %v..%v", filter.MinPrice, filter.MaxPrice)
	}

	body := decodeBody(t, resp)
	mentors := body["mentors"].([]any)
	if len(mentors) != 1 || mentors[0].(map[string]any)["full_name"] != "C" {
		t.Fatalf("unexpected page: %v", mentors)
	}
	pagination := body["pagination"].(map[string]any)
	if pagination["total"] != float64(3) || pagination["total_pages"] != float64(2) {
		t.Fatalf("unexpected pagination: %v", pagination)
	}
}

func TestListMentorsDefaultsToAllDepartments(t *testing.T) {
	service := &stubMentorService{}
	handler := NewMentorHandler(service, &stubMentorProfiles{}, stubRefresher{}, nil)

	app := appWithSession(studentID, models.RoleStudent)
	app.Get("/api/v1/mentors", handler.ListMentors)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/mentors", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if service.lastFilter.Department != services.AllDepartments || service.lastFilter.MaxPrice != services.DefaultMaxPrice {
		t.Fatalf("unexpected default filter: %+v", service.lastFilter)
	}
}

func TestListMentorsRejectsUnknownSort(t *testing.T) {
	handler := NewMentorHandler(&stubMentorService{}, &stubMentorProfiles{}, stubRefresher{}, nil)

	app := appWithSession(studentID, models.RoleStudent)
	app.Get("/api/v1/mentors", handler.ListMentors)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/mentors?sort=cheapest", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetMentorMapsNotFound(t *testing.T) {
	handler := NewMentorHandler(&stubMentorService{detailErr: services.ErrMentorNotFound}, &stubMentorProfiles{}, stubRefresher{}, nil)

	app := appWithSession(studentID, models.RoleStudent)
	app.Get("/api/v1/mentors/:id", handler.GetMentor)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/mentors/"+mentorID.String(), nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestApplyReportsEveryInvalidField(t *testing.T) {
	profiles := &stubMentorProfiles{}
	handler := NewMentorHandler(&stubMentorService{}, profiles, stubRefresher{}, nil)

	app := appWithSession(studentID, models.RoleStudent)
	app.Post("/api/v1/mentors/apply", handler.Apply)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mentors/apply", strings.NewReader(`{
		"full_name": "A",
		"department": "",
		"year": "3rd Year",
		"bio": "too short",
		"subjects": [],
		"hourly_rate": 1500,
		"availability": "Evenings"
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
	fields := decodeBody(t, resp)["fields"].(map[string]any)
	for _, name := range []string{"full_name", "department", "bio", "subjects", "hourly_rate"} {
		if _, ok := fields[name]; !ok {
			t.Fatalf("expected %s error, got %v", name, fields)
		}
	}
	if _, ok := fields["year"]; ok {
		t.Fatalf("did not expect year error, got %v", fields)
	}
	if profiles.calls != 0 {
		t.Fatal("profile must not be updated for invalid input")
	}
}

func TestApplyPromotesAndReturnsRefreshedToken(t *testing.T) {
	profiles := &stubMentorProfiles{}
	handler := NewMentorHandler(&stubMentorService{}, profiles, stubRefresher{}, nil)

	app := appWithSession(studentID, models.RoleStudent)
	app.Post("/api/v1/mentors/apply", handler.Apply)

	bio := strings.Repeat("I tutor first year calculus and linear algebra. ", 2)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/mentors/apply", strings.NewReader(`{
		"full_name": "  Priya Sharma ",
		"department": "Mathematics",
		"year": "4th Year",
		"bio": "`+bio+`",
		"subjects": [" Calculus ", "Linear Algebra"],
		"hourly_rate": 25,
		"availability": "Weekday evenings"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if profiles.lastInput.FullName != "Priya Sharma" || profiles.lastInput.Subjects[0] != "Calculus" {
		t.Fatalf("expected trimmed input, got %+v", profiles.lastInput)
	}
	if profiles.lastInput.HourlyRate != 25 {
		t.Fatalf("expected rate 25, got %v", profiles.lastInput.HourlyRate)
	}
	if token := decodeBody(t, resp)["token"]; token != "refreshed-mentor" {
		t.Fatalf("expected refreshed mentor token, got %v", token)
	}
}

func TestContactMentorRequiresMessage(t *testing.T) {
	service := &stubMentorService{}
	handler := NewMentorHandler(service, &stubMentorProfiles{}, stubRefresher{}, nil)

	app := appWithSession(studentID, models.RoleStudent)
	app.Post("/api/v1/mentors/:id/contact", handler.ContactMentor)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mentors/"+mentorID.String()+"/contact", strings.NewReader(`{"message":"   "}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if service.lastMessage != "" {
		t.Fatal("service must not be called for a blank message")
	}
}
