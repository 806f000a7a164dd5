package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleStudent = "student"
	RoleMentor  = "mentor"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AuthSession identifies the caller of a request. Handlers build it from the
// verified token and pass it explicitly into services.
type AuthSession struct {
	UserID uuid.UUID
	Role   string
}

func (s AuthSession) IsMentor() bool {
	return s.Role == RoleMentor
}
