package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/acadbuddy/acadbuddy-api/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
)

const (
	bookingDateLayout = "2006-01-02"
	bookingTimeLayout = "15:04"
	maxSessionMinutes = 480
)

type sessionStore interface {
	Create(ctx context.Context, input repository.CreateSessionInput) (*models.Session, error)
	GetByID(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	List(ctx context.Context, filter repository.SessionListFilter) ([]models.Session, error)
	UpdateStatusIfCurrent(ctx context.Context, sessionID uuid.UUID, currentStatus string, nextStatus string) (*models.Session, error)
}

type profileReader interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	ListByUserIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error)
}

type SessionService struct {
	sessions sessionStore
	profiles profileReader
	loc      *time.Location
}

func NewSessionService(sessions sessionStore, profiles profileReader, loc *time.Location) *SessionService {
	if loc == nil {
		loc = time.UTC
	}
	return &SessionService{
		sessions: sessions,
		profiles: profiles,
		loc:      loc,
	}
}

type BookSessionInput struct {
	MentorID        uuid.UUID
	Date            string
	Time            string
	DurationMinutes int
	Subject         *string
	Notes           *string
}

// ParseScheduledAt combines a YYYY-MM-DD date and HH:MM time as wall clock
// time in loc.
func ParseScheduledAt(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	scheduledAt, err := time.ParseInLocation(
		bookingDateLayout+" "+bookingTimeLayout,
		strings.TrimSpace(date)+" "+strings.TrimSpace(clock),
		loc,
	)
	if err != nil {
		return time.Time{}, ErrInvalidInput
	}
	return scheduledAt, nil
}

// BookSession requests a session with a mentor. New sessions always start as
// pending; overlapping requests are not checked.
func (s *SessionService) BookSession(
	ctx context.Context,
	sess models.AuthSession,
	input BookSessionInput,
) (*models.SessionDetail, error) {
	if input.MentorID == uuid.Nil || input.MentorID == sess.UserID {
		return nil, ErrInvalidInput
	}
	if input.DurationMinutes <= 0 || input.DurationMinutes > maxSessionMinutes {
		return nil, ErrInvalidInput
	}

	scheduledAt, err := ParseScheduledAt(input.Date, input.Time, s.loc)
	if err != nil {
		return nil, err
	}

	mentor, err := s.profiles.GetByUserID(ctx, input.MentorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMentorNotFound
		}
		return nil, err
	}
	if mentor.Role != models.RoleMentor {
		return nil, ErrMentorNotFound
	}

	session, err := s.sessions.Create(ctx, repository.CreateSessionInput{
		StudentID:       sess.UserID,
		MentorID:        input.MentorID,
		ScheduledAt:     scheduledAt,
		DurationMinutes: input.DurationMinutes,
		Subject:         trimOptional(input.Subject),
		Notes:           trimOptional(input.Notes),
	})
	if err != nil {
		return nil, err
	}

	return &models.SessionDetail{
		Session:       *session,
		PartnerName:   mentor.DisplayName(),
		PartnerAvatar: mentor.AvatarURL,
	}, nil
}

// ListSessions returns the caller's sessions with the other party's display
// data. Mentors see the sessions booked with them.
func (s *SessionService) ListSessions(
	ctx context.Context,
	sess models.AuthSession,
	status string,
	upcomingOnly bool,
) ([]models.SessionDetail, error) {
	if status != "" {
		if _, ok := validSessionStatuses[status]; !ok {
			return nil, ErrInvalidStatus
		}
	}

	sessions, err := s.sessions.List(ctx, repository.SessionListFilter{
		ActorID:      sess.UserID,
		Role:         sess.Role,
		Status:       status,
		UpcomingOnly: upcomingOnly,
	})
	if err != nil {
		return nil, err
	}
	return s.withPartners(ctx, sess, sessions)
}

func (s *SessionService) GetSession(
	ctx context.Context,
	sess models.AuthSession,
	sessionID uuid.UUID,
) (*models.SessionDetail, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canAccessSession(sess, session) {
		return nil, ErrForbidden
	}

	details, err := s.withPartners(ctx, sess, []models.Session{*session})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// UpdateStatus applies a mentor action (accept, decline, complete) or a
// student cancellation.
func (s *SessionService) UpdateStatus(
	ctx context.Context,
	sess models.AuthSession,
	sessionID uuid.UUID,
	action string,
) (*models.SessionDetail, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canAccessSession(sess, session) {
		return nil, ErrForbidden
	}

	nextStatus, err := normalizeRequestedStatus(action)
	if err != nil {
		return nil, err
	}
	if err := validateStatusTransition(sess, session, nextStatus); err != nil {
		return nil, err
	}

	updated, err := s.sessions.UpdateStatusIfCurrent(ctx, sessionID, session.Status, nextStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	details, err := s.withPartners(ctx, sess, []models.Session{*updated})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *SessionService) withPartners(
	ctx context.Context,
	sess models.AuthSession,
	sessions []models.Session,
) ([]models.SessionDetail, error) {
	partnerIDs := lo.Uniq(lo.Map(sessions, func(session models.Session, _ int) uuid.UUID {
		return sessionPartner(sess, session)
	}))
	profiles, err := s.profiles.ListByUserIDs(ctx, partnerIDs)
	if err != nil {
		return nil, err
	}

	details := make([]models.SessionDetail, 0, len(sessions))
	for _, session := range sessions {
		detail := models.SessionDetail{Session: session, PartnerName: models.UnknownUserName}
		if profile, ok := profiles[sessionPartner(sess, session)]; ok {
			detail.PartnerName = profile.DisplayName()
			detail.PartnerAvatar = profile.AvatarURL
		}
		details = append(details, detail)
	}
	return details, nil
}

var validSessionStatuses = map[string]struct{}{
	models.SessionPending:   {},
	models.SessionUpcoming:  {},
	models.SessionCompleted: {},
	models.SessionCancelled: {},
}

func sessionPartner(sess models.AuthSession, session models.Session) uuid.UUID {
	if session.MentorID == sess.UserID {
		return session.StudentID
	}
	return session.MentorID
}

func canAccessSession(sess models.AuthSession, session *models.Session) bool {
	return session.StudentID == sess.UserID || session.MentorID == sess.UserID
}

func normalizeRequestedStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "accept", "accepted", "upcoming":
		return models.SessionUpcoming, nil
	case "complete", "completed":
		return models.SessionCompleted, nil
	case "decline", "declined", "cancel", "cancelled", "canceled":
		return models.SessionCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}

func validateStatusTransition(
	sess models.AuthSession,
	session *models.Session,
	nextStatus string,
) error {
	switch sess.UserID {
	case session.MentorID:
		switch nextStatus {
		case models.SessionUpcoming:
			if session.Status != models.SessionPending {
				return ErrInvalidStateTransition
			}
		case models.SessionCompleted:
			if session.Status != models.SessionUpcoming {
				return ErrInvalidStateTransition
			}
		case models.SessionCancelled:
			if session.Status != models.SessionPending && session.Status != models.SessionUpcoming {
				return ErrInvalidStateTransition
			}
		default:
			return ErrInvalidStatus
		}
		return nil
	case session.StudentID:
		if nextStatus != models.SessionCancelled {
			return ErrForbidden
		}
		if session.Status != models.SessionPending && session.Status != models.SessionUpcoming {
			return ErrInvalidStateTransition
		}
		return nil
	default:
		return ErrForbidden
	}
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
