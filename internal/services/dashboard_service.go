package services

import (
	"context"
	"errors"
	"time"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/acadbuddy/acadbuddy-api/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
)

type contactStore interface {
	Create(ctx context.Context, studentID uuid.UUID, mentorID uuid.UUID, message string) (*models.MentorContact, error)
	ListForStudent(ctx context.Context, studentID uuid.UUID) ([]models.ContactDetail, error)
}

type DashboardService struct {
	sessions     *SessionService
	sessionStore sessionStore
	profiles     profileReader
	contacts     contactStore
	slots        availabilityStore
	now          func() time.Time
}

func NewDashboardService(
	sessions *SessionService,
	sessionStore sessionStore,
	profiles profileReader,
	contacts contactStore,
	slots availabilityStore,
) *DashboardService {
	return &DashboardService{
		sessions:     sessions,
		sessionStore: sessionStore,
		profiles:     profiles,
		contacts:     contacts,
		slots:        slots,
		now:          time.Now,
	}
}

// StudentDashboard lists the caller's mentor contact requests and the
// sessions they booked that have not started yet.
func (s *DashboardService) StudentDashboard(ctx context.Context, sess models.AuthSession) (*models.StudentDashboard, error) {
	contacts, err := s.contacts.ListForStudent(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	studentView := models.AuthSession{UserID: sess.UserID, Role: models.RoleStudent}
	sessions, err := s.sessions.ListSessions(ctx, studentView, "", true)
	if err != nil {
		return nil, err
	}

	return &models.StudentDashboard{Contacts: contacts, Sessions: sessions}, nil
}

func (s *DashboardService) MentorDashboard(ctx context.Context, sess models.AuthSession) (*models.MentorDashboard, error) {
	if !sess.IsMentor() {
		return nil, ErrForbidden
	}

	profile, err := s.profiles.GetByUserID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	raw, err := s.sessionStore.List(ctx, repository.SessionListFilter{ActorID: sess.UserID, Role: models.RoleMentor})
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.withPartners(ctx, sess, raw)
	if err != nil {
		return nil, err
	}

	slots, err := s.slots.ListForMentor(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	rate := 0.0
	if profile.HourlyRate != nil {
		rate = *profile.HourlyRate
	}

	return &models.MentorDashboard{
		Sessions:     sessions,
		Stats:        ComputeMentorStats(raw, rate, s.now()),
		Availability: slots,
	}, nil
}

// ComputeMentorStats derives dashboard counters. Earnings cover completed
// sessions only, at the mentor's current hourly rate.
func ComputeMentorStats(sessions []models.Session, hourlyRate float64, now time.Time) models.MentorStats {
	completed := lo.Filter(sessions, func(session models.Session, _ int) bool {
		return session.Status == models.SessionCompleted
	})
	upcoming := lo.CountBy(sessions, func(session models.Session) bool {
		return session.Status == models.SessionUpcoming && !session.ScheduledAt.Before(now)
	})
	pending := lo.CountBy(sessions, func(session models.Session) bool {
		return session.Status == models.SessionPending
	})
	earnings := lo.SumBy(completed, func(session models.Session) float64 {
		return float64(session.DurationMinutes) / 60 * hourlyRate
	})

	return models.MentorStats{
		CompletedSessions: len(completed),
		UpcomingSessions:  upcoming,
		PendingRequests:   pending,
		TotalEarnings:     earnings,
	}
}
