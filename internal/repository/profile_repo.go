package repository

import (
	"context"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const profileColumns = `
	id, user_id, full_name, avatar_url, role, department, year, bio, subjects,
	hourly_rate, availability, rating, review_count, created_at, updated_at
`

type ProfileRepository struct {
	db DBTX
}

func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

type UpdateProfileInput struct {
	FullName     *string
	AvatarURL    *string
	Department   *string
	Year         *string
	Bio          *string
	Subjects     *[]string
	HourlyRate   *float64
	Availability *string
}

type BecomeMentorInput struct {
	FullName     string
	Department   string
	Year         string
	Bio          string
	Subjects     []string
	HourlyRate   float64
	Availability string
}

func (r *ProfileRepository) CreateForUser(ctx context.Context, userID uuid.UUID, fullName string) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (user_id, full_name, role)
		VALUES ($1, $2, 'student')
		RETURNING ` + profileColumns
	return scanProfile(r.db.QueryRow(ctx, query, userID, fullName))
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	return scanProfile(r.db.QueryRow(ctx, query, userID))
}

// ListByUserIDs returns the profiles found for ids keyed by user id. Unknown
// ids are simply absent.
func (r *ProfileRepository) ListByUserIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error) {
	profiles := make(map[uuid.UUID]models.Profile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = ANY($1)`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles[profile.UserID] = *profile
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *ProfileRepository) ListMentors(ctx context.Context) ([]models.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE role = 'mentor'
		ORDER BY rating DESC, created_at ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mentors := make([]models.Profile, 0)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		mentors = append(mentors, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return mentors, nil
}

func (r *ProfileRepository) UpdatePartial(ctx context.Context, userID uuid.UUID, req UpdateProfileInput) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET full_name = COALESCE($1, full_name),
			avatar_url = COALESCE($2, avatar_url),
			department = COALESCE($3, department),
			year = COALESCE($4, year),
			bio = COALESCE($5, bio),
			subjects = COALESCE($6, subjects),
			hourly_rate = COALESCE($7, hourly_rate),
			availability = COALESCE($8, availability),
			updated_at = NOW()
		WHERE user_id = $9
		RETURNING ` + profileColumns
	return scanProfile(r.db.QueryRow(ctx, query,
		req.FullName,
		req.AvatarURL,
		req.Department,
		req.Year,
		req.Bio,
		req.Subjects,
		req.HourlyRate,
		req.Availability,
		userID,
	))
}

func (r *ProfileRepository) BecomeMentor(ctx context.Context, userID uuid.UUID, req BecomeMentorInput) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET full_name = $1,
			department = $2,
			year = $3,
			bio = $4,
			subjects = $5,
			hourly_rate = $6,
			availability = $7,
			role = 'mentor',
			updated_at = NOW()
		WHERE user_id = $8
		RETURNING ` + profileColumns
	return scanProfile(r.db.QueryRow(ctx, query,
		req.FullName,
		req.Department,
		req.Year,
		req.Bio,
		req.Subjects,
		req.HourlyRate,
		req.Availability,
		userID,
	))
}

func (r *ProfileRepository) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET avatar_url = $1, updated_at = NOW()
		WHERE user_id = $2
		RETURNING ` + profileColumns
	return scanProfile(r.db.QueryRow(ctx, query, avatarURL, userID))
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var profile models.Profile
	err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.AvatarURL,
		&profile.Role,
		&profile.Department,
		&profile.Year,
		&profile.Bio,
		&profile.Subjects,
		&profile.HourlyRate,
		&profile.Availability,
		&profile.Rating,
		&profile.ReviewCount,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if profile.Subjects == nil {
		profile.Subjects = []string{}
	}
	return &profile, nil
}
