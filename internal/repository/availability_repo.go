package repository

import (
	"context"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const availabilityColumns = `id, mentor_id, day_of_week, start_time::text, end_time::text, is_available, created_at`

type AvailabilityRepository struct {
	db DBTX
}

func NewAvailabilityRepository(db DBTX) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

func (r *AvailabilityRepository) ListForMentor(ctx context.Context, mentorID uuid.UUID) ([]models.AvailabilitySlot, error) {
	query := `
		SELECT ` + availabilityColumns + `
		FROM mentor_availability
		WHERE mentor_id = $1
		ORDER BY day_of_week ASC, start_time ASC
	`
	rows, err := r.db.Query(ctx, query, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]models.AvailabilitySlot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *AvailabilityRepository) Insert(
	ctx context.Context,
	mentorID uuid.UUID,
	dayOfWeek int,
	startTime string,
	endTime string,
) (*models.AvailabilitySlot, error) {
	query := `
		INSERT INTO mentor_availability (mentor_id, day_of_week, start_time, end_time, is_available)
		VALUES ($1, $2, $3::time, $4::time, TRUE)
		RETURNING ` + availabilityColumns
	return scanSlot(r.db.QueryRow(ctx, query, mentorID, dayOfWeek, startTime, endTime))
}

func (r *AvailabilityRepository) SetAvailable(
	ctx context.Context,
	slotID uuid.UUID,
	mentorID uuid.UUID,
	available bool,
) (*models.AvailabilitySlot, error) {
	query := `
		UPDATE mentor_availability
		SET is_available = $3
		WHERE id = $1 AND mentor_id = $2
		RETURNING ` + availabilityColumns
	return scanSlot(r.db.QueryRow(ctx, query, slotID, mentorID, available))
}

func scanSlot(row pgx.Row) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	err := row.Scan(
		&slot.ID,
		&slot.MentorID,
		&slot.DayOfWeek,
		&slot.StartTime,
		&slot.EndTime,
		&slot.IsAvailable,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}
