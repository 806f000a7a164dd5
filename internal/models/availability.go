package models

import (
	"time"

	"github.com/google/uuid"
)

type AvailabilitySlot struct {
	ID          uuid.UUID `json:"id"`
	MentorID    uuid.UUID `json:"mentor_id"`
	DayOfWeek   int       `json:"day_of_week"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

type MentorContact struct {
	ID        uuid.UUID `json:"id"`
	StudentID uuid.UUID `json:"student_id"`
	MentorID  uuid.UUID `json:"mentor_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type ContactDetail struct {
	MentorContact
	MentorName       string   `json:"mentor_name"`
	MentorAvatar     *string  `json:"mentor_avatar"`
	MentorDepartment *string  `json:"mentor_department"`
	MentorSubjects   []string `json:"mentor_subjects"`
}
