package realtime

import (
	"github.com/google/uuid"

	"github.com/OER-Forge/raisemyhand/internal/models"
)

// Event types pushed to connected clients.
const (
	EventNewQuestion     = "new_question"
	EventVoteUpdate      = "vote_update"
	EventAnswerStatus    = "answer_status"
	EventQuestionUpdated = "question_updated"
	EventError           = "error"
	EventPong            = "pong"
	EventMaintenanceMode = "maintenance_mode_changed"
)

// NewQuestionEvent announces a freshly submitted question to the meeting.
type NewQuestionEvent struct {
	Type     string          `json:"type"`
	Question models.Question `json:"question"`
}

// NewQuestion builds a new_question event.
func NewQuestion(q models.Question) NewQuestionEvent {
	return NewQuestionEvent{Type: EventNewQuestion, Question: q}
}

// VoteUpdateEvent carries the authoritative upvote count after a toggle.
type VoteUpdateEvent struct {
	Type       string    `json:"type"`
	QuestionID uuid.UUID `json:"question_id"`
	Upvotes    int       `json:"upvotes"`
}

// VoteUpdate builds a vote_update event.
func VoteUpdate(questionID uuid.UUID, upvotes int) VoteUpdateEvent {
	return VoteUpdateEvent{Type: EventVoteUpdate, QuestionID: questionID, Upvotes: upvotes}
}

// AnswerStatusEvent signals the answered-in-class flag changing.
type AnswerStatusEvent struct {
	Type       string    `json:"type"`
	QuestionID uuid.UUID `json:"question_id"`
	IsAnswered bool      `json:"is_answered"`
}

// AnswerStatus builds an answer_status event.
func AnswerStatus(questionID uuid.UUID, answered bool) AnswerStatusEvent {
	return AnswerStatusEvent{Type: EventAnswerStatus, QuestionID: questionID, IsAnswered: answered}
}

// QuestionUpdatedEvent carries moderation or written-answer changes.
type QuestionUpdatedEvent struct {
	Type     string          `json:"type"`
	Question models.Question `json:"question"`
}

// QuestionUpdated builds a question_updated event.
func QuestionUpdated(q models.Question) QuestionUpdatedEvent {
	return QuestionUpdatedEvent{Type: EventQuestionUpdated, Question: q}
}

// ErrorEvent tells one client why its request or connection was refused.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Error builds an error event.
func Error(message string) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: message}
}

// PongEvent replies to a keepalive ping.
type PongEvent struct {
	Type string `json:"type"`
}

// Pong builds a pong event.
func Pong() PongEvent {
	return PongEvent{Type: EventPong}
}

// MaintenanceModeEvent announces the system-wide maintenance toggle.
type MaintenanceModeEvent struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

// MaintenanceMode builds a maintenance_mode_changed event.
func MaintenanceMode(enabled bool) MaintenanceModeEvent {
	return MaintenanceModeEvent{Type: EventMaintenanceMode, Enabled: enabled}
}
