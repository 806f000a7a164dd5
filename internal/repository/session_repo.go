package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `
	id, student_id, mentor_id, scheduled_at, duration_minutes, status, subject, notes,
	created_at, updated_at
`

type CreateSessionInput struct {
	StudentID       uuid.UUID
	MentorID        uuid.UUID
	ScheduledAt     time.Time
	DurationMinutes int
	Subject         *string
	Notes           *string
}

type SessionListFilter struct {
	ActorID uuid.UUID
	Role    string
	Status  string
	// UpcomingOnly keeps sessions whose start lies in the future.
	UpcomingOnly bool
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(
	ctx context.Context,
	input CreateSessionInput,
) (*models.Session, error) {
	query := `
		INSERT INTO sessions (student_id, mentor_id, scheduled_at, duration_minutes, status, subject, notes)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
		RETURNING ` + sessionColumns

	return scanSession(r.db.QueryRow(
		ctx,
		query,
		input.StudentID,
		input.MentorID,
		input.ScheduledAt,
		input.DurationMinutes,
		input.Subject,
		input.Notes,
	))
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) List(
	ctx context.Context,
	filter SessionListFilter,
) ([]models.Session, error) {
	actorColumn := "student_id"
	if filter.Role == models.RoleMentor {
		actorColumn = "mentor_id"
	}

	args := []any{filter.ActorID}
	whereParts := []string{fmt.Sprintf("%s = $1", actorColumn)}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.UpcomingOnly {
		whereParts = append(whereParts, "scheduled_at >= NOW()")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE %s
		ORDER BY scheduled_at ASC, id ASC
	`, sessionColumns, strings.Join(whereParts, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// UpdateStatusIfCurrent moves a session from currentStatus to nextStatus. It
// returns pgx.ErrNoRows when the session no longer has currentStatus.
func (r *SessionRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	sessionID uuid.UUID,
	currentStatus string,
	nextStatus string,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, sessionID, currentStatus, nextStatus))
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.StudentID,
		&session.MentorID,
		&session.ScheduledAt,
		&session.DurationMinutes,
		&session.Status,
		&session.Subject,
		&session.Notes,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
