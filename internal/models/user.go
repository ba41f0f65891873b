package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/rbac"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Phone        *string    `json:"phone,omitempty"`
	Role         rbac.Role  `json:"role"`
	CompanyID    *uuid.UUID `json:"company_id,omitempty"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Actor builds the caller identity for a user authenticated through the given session.
func (u *User) Actor(sessionID uuid.UUID) rbac.Actor {
	return rbac.Actor{
		UserID:    u.ID,
		Role:      u.Role,
		CompanyID: u.CompanyID,
		SessionID: sessionID,
	}
}
