package services

import (
	"context"
	"errors"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

// DefaultSlots is the weekly grid a mentor toggles. Times carry seconds so they
// compare equal to what the database returns for TIME columns.
var DefaultSlots = []TimeSlot{
	{Start: "09:00:00", End: "12:00:00", Label: "Morning"},
	{Start: "14:00:00", End: "17:00:00", Label: "Afternoon"},
	{Start: "18:00:00", End: "21:00:00", Label: "Evening"},
}

type availabilityStore interface {
	ListForMentor(ctx context.Context, mentorID uuid.UUID) ([]models.AvailabilitySlot, error)
	Insert(ctx context.Context, mentorID uuid.UUID, dayOfWeek int, startTime string, endTime string) (*models.AvailabilitySlot, error)
	SetAvailable(ctx context.Context, slotID uuid.UUID, mentorID uuid.UUID, available bool) (*models.AvailabilitySlot, error)
}

type AvailabilityService struct {
	slots availabilityStore
}

func NewAvailabilityService(slots availabilityStore) *AvailabilityService {
	return &AvailabilityService{slots: slots}
}

func (s *AvailabilityService) List(ctx context.Context, sess models.AuthSession) ([]models.AvailabilitySlot, error) {
	if !sess.IsMentor() {
		return nil, ErrForbidden
	}
	return s.slots.ListForMentor(ctx, sess.UserID)
}

// ToggleSlot flips one cell of the weekly grid. A cell with no stored row is
// created as available. Concurrent toggles of the same cell are independent
// writes and the last one wins.
func (s *AvailabilityService) ToggleSlot(
	ctx context.Context,
	sess models.AuthSession,
	dayOfWeek int,
	slotIndex int,
) (*models.AvailabilitySlot, error) {
	if !sess.IsMentor() {
		return nil, ErrForbidden
	}
	if dayOfWeek < 0 || dayOfWeek > 6 || slotIndex < 0 || slotIndex >= len(DefaultSlots) {
		return nil, ErrInvalidInput
	}
	slot := DefaultSlots[slotIndex]

	existing, err := s.slots.ListForMentor(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	for _, current := range existing {
		if current.DayOfWeek == dayOfWeek && current.StartTime == slot.Start && current.EndTime == slot.End {
			updated, err := s.slots.SetAvailable(ctx, current.ID, sess.UserID, !current.IsAvailable)
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNotFound
			}
			return updated, err
		}
	}

	created, err := s.slots.Insert(ctx, sess.UserID, dayOfWeek, slot.Start, slot.End)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrConflict
		}
		return nil, err
	}
	return created, nil
}
