package models

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	FullName     *string   `json:"full_name"`
	AvatarURL    *string   `json:"avatar_url"`
	Role         string    `json:"role"`
	Department   *string   `json:"department"`
	Year         *string   `json:"year"`
	Bio          *string   `json:"bio"`
	Subjects     []string  `json:"subjects"`
	HourlyRate   *float64  `json:"hourly_rate"`
	Availability *string   `json:"availability"`
	Rating       float64   `json:"rating"`
	ReviewCount  int       `json:"review_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName falls back to a placeholder when the profile has no name yet.
func (p *Profile) DisplayName() string {
	if p == nil || p.FullName == nil || *p.FullName == "" {
		return UnknownUserName
	}
	return *p.FullName
}

const UnknownUserName = "Unknown User"

type MentorListResponse struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	FullName    string   `json:"full_name"`
	AvatarURL   *string  `json:"avatar_url"`
	Department  string   `json:"department"`
	Year        string   `json:"year"`
	Subjects    []string `json:"subjects"`
	HourlyRate  float64  `json:"hourly_rate"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"review_count"`
}

type MentorDetailResponse struct {
	MentorListResponse
	Bio          string             `json:"bio"`
	Availability string             `json:"availability"`
	Slots        []AvailabilitySlot `json:"slots"`
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
