package questions

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/OER-Forge/raisemyhand/internal/meetings"
	"github.com/OER-Forge/raisemyhand/internal/middleware"
	"github.com/OER-Forge/raisemyhand/internal/models"
	"github.com/OER-Forge/raisemyhand/internal/realtime"
	"github.com/OER-Forge/raisemyhand/pkg/response"
)

const (
	studentCookie       = "rmh_student_id"
	studentCookieMaxAge = 365 * 24 * 3600
	maxQuestionLength   = 2000
)

// CreateRequest is the body for POST /api/meetings/:code/questions.
type CreateRequest struct {
	Text string `json:"text" binding:"required"`
}

// StatusRequest is the body for PATCH /api/questions/:id/status.
type StatusRequest struct {
	Status models.QuestionStatus `json:"status" binding:"required"`
}

// Handler handles question HTTP endpoints and emits realtime events.
type Handler struct {
	repo     *Repository
	meetings *meetings.Repository
	hub      *realtime.Hub
	logger   *zap.Logger
}

// NewHandler creates a questions handler.
func NewHandler(repo *Repository, meetingRepo *meetings.Repository, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, meetings: meetingRepo, hub: hub, logger: logger}
}

// studentIdentity returns the caller's anonymous student ID, minting one in
// a cookie on first use. It identifies a browser for vote deduplication,
// not a real account.
func studentIdentity(c *gin.Context) string {
	if id, err := c.Cookie(studentCookie); err == nil && id != "" {
		return id
	}
	id := uuid.New().String()
	c.SetCookie(studentCookie, id, studentCookieMaxAge, "/", "", false, true)
	return id
}

// Create handles POST /api/meetings/:code/questions (student submits).
func (h *Handler) Create(c *gin.Context) {
	meeting, err := h.meetings.GetActiveByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.NotFound(c, "meeting not found or inactive")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if len(req.Text) > maxQuestionLength {
		response.BadRequest(c, "question too long")
		return
	}

	q := &models.Question{
		MeetingID: meeting.ID,
		StudentID: studentIdentity(c),
		Text:      req.Text,
		Status:    models.StatusApproved,
	}
	if err := h.repo.Create(c.Request.Context(), q); err != nil {
		if errors.Is(err, ErrConcurrencyExhausted) {
			response.ServiceUnavailable(c, "could not assign a question number, please try again")
			return
		}
		h.logger.Error("create question", zap.Error(err))
		response.Internal(c, "failed to create question")
		return
	}

	h.hub.Publish(meeting.MeetingCode, realtime.NewQuestion(*q))
	response.Created(c, q)
}

// Vote handles POST /api/questions/:id/vote (student toggles an upvote).
func (h *Handler) Vote(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}

	result, err := h.repo.ToggleVote(c.Request.Context(), questionID, studentIdentity(c))
	if err != nil {
		if errors.Is(err, ErrQuestionNotFound) {
			response.NotFound(c, "question not found")
			return
		}
		h.logger.Error("toggle vote", zap.Error(err))
		response.Internal(c, "failed to update vote")
		return
	}

	if code, err := h.meetings.CodeByID(c.Request.Context(), result.MeetingID); err == nil {
		h.hub.Publish(code, realtime.VoteUpdate(result.QuestionID, result.Upvotes))
	}
	response.OK(c, result)
}

// UpdateStatus handles PATCH /api/questions/:id/status (instructor moderates).
func (h *Handler) UpdateStatus(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidQuestionStatus(req.Status) {
		response.BadRequest(c, "invalid status")
		return
	}
	if !h.authorizeModeration(c, questionID) {
		return
	}

	q, err := h.repo.UpdateStatus(c.Request.Context(), questionID, req.Status)
	if err != nil {
		h.respondRepoError(c, err, "failed to update question")
		return
	}

	h.broadcastForQuestion(c, q.MeetingID, realtime.QuestionUpdated(*q))
	response.OK(c, q)
}

// MarkAnswered handles POST /api/questions/:id/answered (instructor flags a
// question as answered verbally). Calling it again clears the flag.
func (h *Handler) MarkAnswered(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	if !h.authorizeModeration(c, questionID) {
		return
	}

	current, err := h.repo.GetByID(c.Request.Context(), questionID)
	if err != nil {
		h.respondRepoError(c, err, "failed to load question")
		return
	}
	q, err := h.repo.SetAnsweredInClass(c.Request.Context(), questionID, !current.AnsweredInClass)
	if err != nil {
		h.respondRepoError(c, err, "failed to update question")
		return
	}

	h.broadcastForQuestion(c, q.MeetingID, realtime.AnswerStatus(q.ID, q.AnsweredInClass))
	response.OK(c, gin.H{"id": q.ID, "answered_in_class": q.AnsweredInClass})
}

// authorizeModeration checks the caller owns the question's meeting (admins
// bypass). Writes the error response itself on failure.
func (h *Handler) authorizeModeration(c *gin.Context, questionID uuid.UUID) bool {
	q, err := h.repo.GetByID(c.Request.Context(), questionID)
	if err != nil {
		h.respondRepoError(c, err, "failed to load question")
		return false
	}
	owner, err := h.meetings.OwnerID(c.Request.Context(), q.MeetingID)
	if err != nil {
		response.Internal(c, "failed to load meeting")
		return false
	}
	if owner != middleware.InstructorID(c) && middleware.InstructorRole(c) != models.RoleAdmin {
		response.Forbidden(c, "question belongs to another instructor's meeting")
		return false
	}
	return true
}

func (h *Handler) broadcastForQuestion(c *gin.Context, meetingID uuid.UUID, event any) {
	code, err := h.meetings.CodeByID(c.Request.Context(), meetingID)
	if err != nil {
		h.logger.Warn("resolve meeting code for broadcast", zap.Error(err))
		return
	}
	h.hub.Publish(code, event)
}

func (h *Handler) respondRepoError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, ErrQuestionNotFound) {
		response.NotFound(c, "question not found")
		return
	}
	h.logger.Error(fallback, zap.Error(err))
	response.Internal(c, fallback)
}
