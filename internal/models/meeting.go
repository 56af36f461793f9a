package models

import (
	"time"

	"github.com/google/uuid"
)

// Meeting is one live Q&A session of a class. Students join with MeetingCode,
// the instructor controls it with the separate InstructorCode.
type Meeting struct {
	ID             uuid.UUID  `json:"id"`
	ClassID        uuid.UUID  `json:"class_id"`
	MeetingCode    string     `json:"meeting_code"`
	InstructorCode string     `json:"instructor_code,omitempty"` // never shown to students
	Title          string     `json:"title"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
}

// StudentView strips the instructor code for student-facing responses.
func (m Meeting) StudentView() Meeting {
	m.InstructorCode = ""
	return m
}
