package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SessionPending   = "pending"
	SessionUpcoming  = "upcoming"
	SessionCompleted = "completed"
	SessionCancelled = "cancelled"
)

type Session struct {
	ID              uuid.UUID `json:"id"`
	StudentID       uuid.UUID `json:"student_id"`
	MentorID        uuid.UUID `json:"mentor_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Subject         *string   `json:"subject"`
	Notes           *string   `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SessionDetail carries the other party's display data next to the booking.
type SessionDetail struct {
	Session
	PartnerName   string  `json:"partner_name"`
	PartnerAvatar *string `json:"partner_avatar"`
}

type MentorStats struct {
	CompletedSessions int     `json:"completed_sessions"`
	UpcomingSessions  int     `json:"upcoming_sessions"`
	PendingRequests   int     `json:"pending_requests"`
	TotalEarnings     float64 `json:"total_earnings"`
}

type MentorDashboard struct {
	Sessions     []SessionDetail    `json:"sessions"`
	Stats        MentorStats        `json:"stats"`
	Availability []AvailabilitySlot `json:"availability"`
}

type StudentDashboard struct {
	Contacts []ContactDetail `json:"contacts"`
	Sessions []SessionDetail `json:"sessions"`
}
