package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/acadbuddy/acadbuddy-api/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type stubSessionStore struct {
	created  []repository.CreateSessionInput
	sessions map[uuid.UUID]*models.Session
	filters  []repository.SessionListFilter
}

func newStubSessionStore(sessions ...models.Session) *stubSessionStore {
	store := &stubSessionStore{sessions: make(map[uuid.UUID]*models.Session)}
	for i := range sessions {
		session := sessions[i]
		store.sessions[session.ID] = &session
	}
	return store
}

func (s *stubSessionStore) Create(_ context.Context, input repository.CreateSessionInput) (*models.Session, error) {
	s.created = append(s.created, input)
	session := &models.Session{
		ID:              uuid.New(),
		StudentID:       input.StudentID,
		MentorID:        input.MentorID,
		ScheduledAt:     input.ScheduledAt,
		DurationMinutes: input.DurationMinutes,
		Status:          models.SessionPending,
		Subject:         input.Subject,
		Notes:           input.Notes,
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *stubSessionStore) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *session
	return &copied, nil
}

func (s *stubSessionStore) List(_ context.Context, filter repository.SessionListFilter) ([]models.Session, error) {
	s.filters = append(s.filters, filter)
	out := make([]models.Session, 0)
	for _, session := range s.sessions {
		if session.StudentID == filter.ActorID || session.MentorID == filter.ActorID {
			out = append(out, *session)
		}
	}
	return out, nil
}

func (s *stubSessionStore) UpdateStatusIfCurrent(_ context.Context, id uuid.UUID, current, next string) (*models.Session, error) {
	session, ok := s.sessions[id]
	if !ok || session.Status != current {
		return nil, pgx.ErrNoRows
	}
	session.Status = next
	copied := *session
	return &copied, nil
}

type stubProfileReader struct {
	profiles map[uuid.UUID]models.Profile
}

func (s *stubProfileReader) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &profile, nil
}

func (s *stubProfileReader) ListByUserIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error) {
	out := make(map[uuid.UUID]models.Profile)
	for _, id := range ids {
		if profile, ok := s.profiles[id]; ok {
			out[id] = profile
		}
	}
	return out, nil
}

func mentorProfile(userID uuid.UUID, name string, rate float64) models.Profile {
	return models.Profile{
		ID:         uuid.New(),
		UserID:     userID,
		FullName:   &name,
		Role:       models.RoleMentor,
		HourlyRate: &rate,
		Subjects:   []string{},
	}
}

func TestBookSessionCreatesPendingSessionInLocalTime(t *testing.T) {
	student, mentor := uuid.New(), uuid.New()
	loc := time.FixedZone("IST", 5*60*60+30*60)
	store := newStubSessionStore()
	service := NewSessionService(store, &stubProfileReader{profiles: map[uuid.UUID]models.Profile{
		mentor: mentorProfile(mentor, "Priya", 200),
	}}, loc)

	detail, err := service.BookSession(context.Background(), models.AuthSession{UserID: student, Role: models.RoleStudent}, BookSessionInput{
		MentorID:        mentor,
		Date:            "2025-03-01",
		Time:            "10:00",
		DurationMinutes: 60,
	})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}

	want := time.Date(2025, 3, 1, 10, 0, 0, 0, loc)
	if !detail.ScheduledAt.Equal(want) {
		t.Fatalf("expected scheduled_at %s, got %s", want, detail.ScheduledAt)
	}
	if detail.Status != models.SessionPending || detail.DurationMinutes != 60 {
		t.Fatalf("expected pending 60 minute session, got %+v", detail.Session)
	}
	if detail.PartnerName != "Priya" {
		t.Fatalf("expected mentor name, got %q", detail.PartnerName)
	}
}

func TestBookSessionRejectsInvalidInput(t *testing.T) {
	student, mentor, notMentor := uuid.New(), uuid.New(), uuid.New()
	plain := mentorProfile(notMentor, "Sam", 0)
	plain.Role = models.RoleStudent
	service := NewSessionService(newStubSessionStore(), &stubProfileReader{profiles: map[uuid.UUID]models.Profile{
		mentor:    mentorProfile(mentor, "Priya", 200),
		notMentor: plain,
	}}, nil)
	sess := models.AuthSession{UserID: student, Role: models.RoleStudent}

	cases := []struct {
		name  string
		input BookSessionInput
		want  error
	}{
		{name: "bad date", input: BookSessionInput{MentorID: mentor, Date: "01/03/2025", Time: "10:00", DurationMinutes: 60}, want: ErrInvalidInput},
		{name: "bad time", input: BookSessionInput{MentorID: mentor, Date: "2025-03-01", Time: "25:00", DurationMinutes: 60}, want: ErrInvalidInput},
		{name: "zero duration", input: BookSessionInput{MentorID: mentor, Date: "2025-03-01", Time: "10:00"}, want: ErrInvalidInput},
		{name: "self", input: BookSessionInput{MentorID: student, Date: "2025-03-01", Time: "10:00", DurationMinutes: 60}, want: ErrInvalidInput},
		{name: "unknown mentor", input: BookSessionInput{MentorID: uuid.New(), Date: "2025-03-01", Time: "10:00", DurationMinutes: 60}, want: ErrMentorNotFound},
		{name: "not a mentor", input: BookSessionInput{MentorID: notMentor, Date: "2025-03-01", Time: "10:00", DurationMinutes: 60}, want: ErrMentorNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.BookSession(context.Background(), sess, tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUpdateStatusMentorLifecycle(t *testing.T) {
	student, mentor := uuid.New(), uuid.New()
	session := models.Session{ID: uuid.New(), StudentID: student, MentorID: mentor, Status: models.SessionPending, DurationMinutes: 60}
	store := newStubSessionStore(session)
	service := NewSessionService(store, &stubProfileReader{}, nil)
	mentorSess := models.AuthSession{UserID: mentor, Role: models.RoleMentor}

	if _, err := service.UpdateStatus(context.Background(), mentorSess, session.ID, "complete"); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected pending -> completed to fail, got %v", err)
	}

	accepted, err := service.UpdateStatus(context.Background(), mentorSess, session.ID, "accept")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != models.SessionUpcoming {
		t.Fatalf("expected upcoming, got %q", accepted.Status)
	}
	if accepted.PartnerName != models.UnknownUserName {
		t.Fatalf("expected Unknown User partner, got %q", accepted.PartnerName)
	}

	completed, err := service.UpdateStatus(context.Background(), mentorSess, session.ID, "complete")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != models.SessionCompleted {
		t.Fatalf("expected completed, got %q", completed.Status)
	}
}

func TestUpdateStatusStudentMayOnlyCancel(t *testing.T) {
	student, mentor := uuid.New(), uuid.New()
	session := models.Session{ID: uuid.New(), StudentID: student, MentorID: mentor, Status: models.SessionPending}
	service := NewSessionService(newStubSessionStore(session), &stubProfileReader{}, nil)
	studentSess := models.AuthSession{UserID: student, Role: models.RoleStudent}

	if _, err := service.UpdateStatus(context.Background(), studentSess, session.ID, "accept"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	cancelled, err := service.UpdateStatus(context.Background(), studentSess, session.ID, "cancel")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.SessionCancelled {
		t.Fatalf("expected cancelled, got %q", cancelled.Status)
	}
	if _, err := service.UpdateStatus(context.Background(), studentSess, session.ID, "cancel"); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected second cancel to fail, got %v", err)
	}
}

func TestUpdateStatusRejectsStrangersAndUnknownActions(t *testing.T) {
	session := models.Session{ID: uuid.New(), StudentID: uuid.New(), MentorID: uuid.New(), Status: models.SessionPending}
	service := NewSessionService(newStubSessionStore(session), &stubProfileReader{}, nil)

	if _, err := service.UpdateStatus(context.Background(), models.AuthSession{UserID: uuid.New(), Role: models.RoleMentor}, session.ID, "accept"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := service.UpdateStatus(context.Background(), models.AuthSession{UserID: session.MentorID, Role: models.RoleMentor}, session.ID, "reschedule"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestListSessionsUsesRoleAndValidatesStatus(t *testing.T) {
	mentor := uuid.New()
	store := newStubSessionStore()
	service := NewSessionService(store, &stubProfileReader{}, nil)
	sess := models.AuthSession{UserID: mentor, Role: models.RoleMentor}

	if _, err := service.ListSessions(context.Background(), sess, "bogus", false); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := service.ListSessions(context.Background(), sess, models.SessionPending, true); err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(store.filters) != 1 || store.filters[0].Role != models.RoleMentor || !store.filters[0].UpcomingOnly {
		t.Fatalf("unexpected filter %+v", store.filters)
	}
}
