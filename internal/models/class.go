package models

import (
	"time"

	"github.com/google/uuid"
)

// Class is a course owned by an instructor, e.g. "CS 101 - Fall 2026".
type Class struct {
	ID           uuid.UUID `json:"id"`
	InstructorID uuid.UUID `json:"instructor_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	IsArchived   bool      `json:"is_archived"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
