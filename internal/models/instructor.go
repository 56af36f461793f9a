package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents an instructor account role.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
)

// Instructor is an account that owns classes and answers questions.
type Instructor struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"`
	DisplayName  string     `json:"display_name,omitempty"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// InstructorPublic is Instructor without sensitive fields for API responses.
type InstructorPublic struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToPublic converts Instructor to InstructorPublic.
func (i *Instructor) ToPublic() InstructorPublic {
	return InstructorPublic{
		ID:          i.ID,
		Username:    i.Username,
		DisplayName: i.DisplayName,
		Role:        i.Role,
		CreatedAt:   i.CreatedAt,
	}
}

// APIKey authenticates an instructor for scripted and LMS integrations.
type APIKey struct {
	ID           uuid.UUID  `json:"id"`
	InstructorID uuid.UUID  `json:"instructor_id"`
	Key          string     `json:"key,omitempty"` // returned only at creation
	Name         string     `json:"name"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
}
