package answers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/OER-Forge/raisemyhand/internal/meetings"
	"github.com/OER-Forge/raisemyhand/internal/middleware"
	"github.com/OER-Forge/raisemyhand/internal/models"
	"github.com/OER-Forge/raisemyhand/internal/questions"
	"github.com/OER-Forge/raisemyhand/internal/realtime"
	"github.com/OER-Forge/raisemyhand/pkg/response"
)

const maxAnswerLength = 10000

// WriteRequest is the body for PUT /api/questions/:id/answer.
type WriteRequest struct {
	AnswerText string `json:"answer_text" binding:"required"`
}

// Handler handles written-answer HTTP endpoints.
type Handler struct {
	repo      *Repository
	questions *questions.Repository
	meetings  *meetings.Repository
	hub       *realtime.Hub
	logger    *zap.Logger
}

// NewHandler creates an answers handler.
func NewHandler(repo *Repository, questionRepo *questions.Repository, meetingRepo *meetings.Repository, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, questions: questionRepo, meetings: meetingRepo, hub: hub, logger: logger}
}

// Write handles PUT /api/questions/:id/answer (instructor writes or
// replaces the answer). A rewritten answer starts unapproved again.
func (h *Handler) Write(c *gin.Context) {
	q, ok := h.authorize(c)
	if !ok {
		return
	}
	var req WriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if len(req.AnswerText) > maxAnswerLength {
		response.BadRequest(c, "answer too long")
		return
	}

	a := &models.Answer{
		QuestionID:   q.ID,
		InstructorID: middleware.InstructorID(c),
		AnswerText:   req.AnswerText,
	}
	if err := h.repo.Upsert(c.Request.Context(), a); err != nil {
		h.logger.Error("write answer", zap.Error(err))
		response.Internal(c, "failed to save answer")
		return
	}
	response.OK(c, a)
}

// Get handles GET /api/questions/:id/answer (instructor view).
func (h *Handler) Get(c *gin.Context) {
	q, ok := h.authorize(c)
	if !ok {
		return
	}
	a, err := h.repo.GetByQuestion(c.Request.Context(), q.ID)
	if err != nil {
		h.respondRepoError(c, err, "failed to load answer")
		return
	}
	response.OK(c, a)
}

// Approve handles POST /api/questions/:id/answer/approve. Approval makes
// the answer visible to students and notifies the meeting.
func (h *Handler) Approve(c *gin.Context) {
	h.setApproved(c, true)
}

// Retract handles POST /api/questions/:id/answer/retract.
func (h *Handler) Retract(c *gin.Context) {
	h.setApproved(c, false)
}

// ListForMeeting handles GET /api/meetings/:code/answers (public). Only
// approved answers are visible to students.
func (h *Handler) ListForMeeting(c *gin.Context) {
	m, err := h.meetings.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.NotFound(c, "meeting not found")
		return
	}
	list, err := h.repo.ListApprovedByMeeting(c.Request.Context(), m.ID)
	if err != nil {
		h.logger.Error("list answers", zap.Error(err))
		response.Internal(c, "failed to list answers")
		return
	}
	response.OK(c, gin.H{"answers": list})
}

// Delete handles DELETE /api/questions/:id/answer.
func (h *Handler) Delete(c *gin.Context) {
	q, ok := h.authorize(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), q.ID); err != nil {
		h.respondRepoError(c, err, "failed to delete answer")
		return
	}
	response.NoContent(c)
}

func (h *Handler) setApproved(c *gin.Context, approved bool) {
	q, ok := h.authorize(c)
	if !ok {
		return
	}
	a, err := h.repo.SetApproved(c.Request.Context(), q.ID, approved)
	if err != nil {
		h.respondRepoError(c, err, "failed to update answer")
		return
	}

	if approved {
		if code, err := h.meetings.CodeByID(c.Request.Context(), q.MeetingID); err == nil {
			h.hub.Publish(code, realtime.QuestionUpdated(*q))
		}
	}
	response.OK(c, a)
}

// authorize loads the question and checks the caller owns its meeting
// (admins bypass). Writes the error response itself on failure.
func (h *Handler) authorize(c *gin.Context) (*models.Question, bool) {
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return nil, false
	}
	q, err := h.questions.GetByID(c.Request.Context(), questionID)
	if err != nil {
		if errors.Is(err, questions.ErrQuestionNotFound) {
			response.NotFound(c, "question not found")
		} else {
			response.Internal(c, "failed to load question")
		}
		return nil, false
	}
	owner, err := h.meetings.OwnerID(c.Request.Context(), q.MeetingID)
	if err != nil {
		response.Internal(c, "failed to load meeting")
		return nil, false
	}
	if owner != middleware.InstructorID(c) && middleware.InstructorRole(c) != models.RoleAdmin {
		response.Forbidden(c, "question belongs to another instructor's meeting")
		return nil, false
	}
	return q, true
}

func (h *Handler) respondRepoError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "answer not found")
		return
	}
	h.logger.Error(fallback, zap.Error(err))
	response.Internal(c, fallback)
}
