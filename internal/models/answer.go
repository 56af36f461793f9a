package models

import (
	"time"

	"github.com/google/uuid"
)

// Answer is the instructor's written answer to a question. Markdown is
// allowed in AnswerText; it becomes visible to students once approved.
type Answer struct {
	ID           uuid.UUID `json:"id"`
	QuestionID   uuid.UUID `json:"question_id"`
	InstructorID uuid.UUID `json:"instructor_id"`
	AnswerText   string    `json:"answer_text"`
	IsApproved   bool      `json:"is_approved"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
