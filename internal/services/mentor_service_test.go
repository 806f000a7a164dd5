package services

import (
	"context"
	"errors"
	"testing"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type stubMentorDirectory struct {
	mentors []models.Profile
}

func (s *stubMentorDirectory) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	for _, mentor := range s.mentors {
		if mentor.UserID == userID {
			found := mentor
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *stubMentorDirectory) ListMentors(_ context.Context) ([]models.Profile, error) {
	return s.mentors, nil
}

func buildMentor(name, department string, subjects []string, rate, rating float64, reviews int) models.Profile {
	profile := mentorProfile(uuid.New(), name, rate)
	profile.Department = &department
	profile.Subjects = subjects
	profile.Rating = rating
	profile.ReviewCount = reviews
	return profile
}

func mentorNames(mentors []models.Profile) []string {
	names := make([]string, 0, len(mentors))
	for _, mentor := range mentors {
		names = append(names, mentor.DisplayName())
	}
	return names
}

func TestFilterMentorsQueryMatchesNameSubjectOrDepartment(t *testing.T) {
	mentors := []models.Profile{
		buildMentor("Ananya Rao", "Computer Science", []string{"Data Structures"}, 150, 4.8, 10),
		buildMentor("Vikram", "Mechanical", []string{"Thermodynamics"}, 100, 4.5, 3),
		buildMentor("Meera", "Physics", []string{"Quantum Mechanics"}, 120, 4.9, 7),
	}

	filter := DefaultMentorFilter()
	filter.Query = "MECHANIC"
	got := mentorNames(FilterMentors(mentors, filter))

	if len(got) != 2 || got[0] != "Meera" || got[1] != "Vikram" {
		t.Fatalf("expected Meera then Vikram, got %v", got)
	}
}

func TestFilterMentorsDepartmentSubjectsAndPrice(t *testing.T) {
	mentors := []models.Profile{
		buildMentor("A", "Computer Science", []string{"Machine Learning"}, 250, 4.1, 1),
		buildMentor("B", "Computer Science", []string{"Databases"}, 80, 4.2, 2),
		buildMentor("C", "Computer Science", []string{"Deep Learning"}, 350, 5.0, 9),
		buildMentor("D", "Mathematics", []string{"Learning Theory"}, 90, 4.0, 4),
	}

	filter := DefaultMentorFilter()
	filter.Department = "Computer Science"
	filter.Subjects = []string{"learning"}
	got := mentorNames(FilterMentors(mentors, filter))

	if len(got) != 1 || got[0] != "A" {
		t.Fatalf("expected only A within price range, got %v", got)
	}
}

func TestFilterMentorsSortOrders(t *testing.T) {
	mentors := []models.Profile{
		buildMentor("Cheap", "X", nil, 50, 4.0, 30),
		buildMentor("Pricey", "X", nil, 200, 4.9, 5),
		buildMentor("Mid", "X", nil, 100, 4.5, 12),
	}

	cases := map[string][]string{
		SortRating:    {"Pricey", "Mid", "Cheap"},
		SortPriceLow:  {"Cheap", "Mid", "Pricey"},
		SortPriceHigh: {"Pricey", "Mid", "Cheap"},
		SortReviews:   {"Cheap", "Mid", "Pricey"},
		"":            {"Pricey", "Mid", "Cheap"},
	}
	for sortBy, want := range cases {
		filter := DefaultMentorFilter()
		filter.Sort = sortBy
		got := mentorNames(FilterMentors(mentors, filter))
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("sort %q: expected %v, got %v", sortBy, want, got)
			}
		}
	}
	if mentorNames(mentors)[0] != "Cheap" {
		t.Fatal("input slice must not be reordered")
	}
}

func TestGetMentorOnlyReturnsMentorsWithOpenSlots(t *testing.T) {
	mentor := buildMentor("Priya", "CS", []string{"Go"}, 100, 4.8, 2)
	student := buildMentor("Sam", "CS", nil, 0, 0, 0)
	student.Role = models.RoleStudent
	slots := &stubAvailabilityStore{slots: []models.AvailabilitySlot{
		{ID: uuid.New(), MentorID: mentor.UserID, IsAvailable: true},
		{ID: uuid.New(), MentorID: mentor.UserID, IsAvailable: false},
	}}
	service := NewMentorService(&stubMentorDirectory{mentors: []models.Profile{mentor, student}}, slots, &stubContactStore{})

	detail, err := service.GetMentor(context.Background(), mentor.UserID)
	if err != nil {
		t.Fatalf("GetMentor: %v", err)
	}
	if detail.FullName != "Priya" || len(detail.Slots) != 1 {
		t.Fatalf("unexpected detail %+v", detail)
	}

	if _, err := service.GetMentor(context.Background(), student.UserID); !errors.Is(err, ErrMentorNotFound) {
		t.Fatalf("expected ErrMentorNotFound for a student, got %v", err)
	}
}

func TestContactMentor(t *testing.T) {
	mentor := buildMentor("Priya", "CS", nil, 100, 4.8, 2)
	contacts := &stubContactStore{}
	service := NewMentorService(&stubMentorDirectory{mentors: []models.Profile{mentor}}, &stubAvailabilityStore{}, contacts)
	student := models.AuthSession{UserID: uuid.New(), Role: models.RoleStudent}

	if _, err := service.ContactMentor(context.Background(), student, mentor.UserID, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank message, got %v", err)
	}
	if _, err := service.ContactMentor(context.Background(), student, uuid.New(), "hello"); !errors.Is(err, ErrMentorNotFound) {
		t.Fatalf("expected ErrMentorNotFound, got %v", err)
	}

	contact, err := service.ContactMentor(context.Background(), student, mentor.UserID, "  Can you help with Go?  ")
	if err != nil {
		t.Fatalf("ContactMentor: %v", err)
	}
	if contact.Message != "Can you help with Go?" || len(contacts.created) != 1 {
		t.Fatalf("unexpected contact %+v", contact)
	}
}
