package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionStatus is the moderation state of a question.
type QuestionStatus string

const (
	StatusPending  QuestionStatus = "pending"
	StatusApproved QuestionStatus = "approved"
	StatusRejected QuestionStatus = "rejected"
	StatusFlagged  QuestionStatus = "flagged"
)

// ValidQuestionStatus reports whether s is a known moderation state.
func ValidQuestionStatus(s QuestionStatus) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFlagged:
		return true
	}
	return false
}

// Question is a student question in a meeting. QuestionNumber is the
// permanent meeting-scoped display number (Q1, Q2, ...), unique per meeting
// and never reused, distinct from the row ID.
type Question struct {
	ID              uuid.UUID      `json:"id"`
	MeetingID       uuid.UUID      `json:"meeting_id"`
	StudentID       string         `json:"-"` // anonymous identity, not exposed
	QuestionNumber  int            `json:"question_number"`
	Text            string         `json:"text"`
	Status          QuestionStatus `json:"status"`
	Upvotes         int            `json:"upvotes"`
	AnsweredInClass bool           `json:"answered_in_class"`
	CreatedAt       time.Time      `json:"created_at"`
	ReviewedAt      *time.Time     `json:"reviewed_at,omitempty"`
}

// QuestionVote records one student's upvote on a question. At most one row
// exists per (question, student); voting again removes it.
type QuestionVote struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	StudentID  string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
