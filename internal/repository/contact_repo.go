package repository

import (
	"context"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/google/uuid"
)

type ContactRepository struct {
	db DBTX
}

func NewContactRepository(db DBTX) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Create(
	ctx context.Context,
	studentID uuid.UUID,
	mentorID uuid.UUID,
	message string,
) (*models.MentorContact, error) {
	query := `
		INSERT INTO mentor_contacts (student_id, mentor_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, student_id, mentor_id, message, created_at
	`
	var contact models.MentorContact
	err := r.db.QueryRow(ctx, query, studentID, mentorID, message).Scan(
		&contact.ID,
		&contact.StudentID,
		&contact.MentorID,
		&contact.Message,
		&contact.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// ListForStudent returns the student's contact requests joined with the
// mentor's profile, newest first.
func (r *ContactRepository) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]models.ContactDetail, error) {
	query := `
		SELECT c.id, c.student_id, c.mentor_id, c.message, c.created_at,
			   COALESCE(p.full_name, ''), p.avatar_url, p.department, COALESCE(p.subjects, '{}')
		FROM mentor_contacts c
		LEFT JOIN profiles p ON p.user_id = c.mentor_id
		WHERE c.student_id = $1
		ORDER BY c.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]models.ContactDetail, 0)
	for rows.Next() {
		var contact models.ContactDetail
		if err := rows.Scan(
			&contact.ID,
			&contact.StudentID,
			&contact.MentorID,
			&contact.Message,
			&contact.CreatedAt,
			&contact.MentorName,
			&contact.MentorAvatar,
			&contact.MentorDepartment,
			&contact.MentorSubjects,
		); err != nil {
			return nil, err
		}
		if contact.MentorName == "" {
			contact.MentorName = models.UnknownUserName
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return contacts, nil
}
