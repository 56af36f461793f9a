package meetings

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/OER-Forge/raisemyhand/internal/middleware"
	"github.com/OER-Forge/raisemyhand/internal/models"
	"github.com/OER-Forge/raisemyhand/pkg/response"
	"github.com/OER-Forge/raisemyhand/pkg/utils"
)

const codeLength = 22

// QuestionLister supplies a meeting's questions for student views and
// reports. Satisfied by questions.Repository.
type QuestionLister interface {
	ListByMeeting(ctx context.Context, meetingID uuid.UUID, approvedOnly bool) ([]models.Question, error)
}

// ClassOwner resolves who owns a class. Satisfied by classes.Repository.
type ClassOwner interface {
	OwnerID(ctx context.Context, classID uuid.UUID) (uuid.UUID, error)
}

// CreateRequest is the body for POST /api/classes/:id/meetings.
type CreateRequest struct {
	Title string `json:"title" binding:"required"`
}

// Handler handles meeting HTTP endpoints.
type Handler struct {
	repo      *Repository
	classes   ClassOwner
	questions QuestionLister
	logger    *zap.Logger
}

// NewHandler creates a meetings handler.
func NewHandler(repo *Repository, classes ClassOwner, questions QuestionLister, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, classes: classes, questions: questions, logger: logger}
}

// Create handles POST /api/classes/:id/meetings (instructor only).
func (h *Handler) Create(c *gin.Context) {
	classID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid class id")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	owner, err := h.classes.OwnerID(c.Request.Context(), classID)
	if err != nil {
		response.NotFound(c, "class not found")
		return
	}
	if owner != middleware.InstructorID(c) {
		response.Forbidden(c, "class belongs to another instructor")
		return
	}

	m := &models.Meeting{
		ClassID:        classID,
		MeetingCode:    utils.RandomCode(codeLength),
		InstructorCode: utils.RandomCode(codeLength),
		Title:          req.Title,
	}
	if err := h.repo.Create(c.Request.Context(), m); err != nil {
		h.logger.Error("create meeting", zap.Error(err))
		response.Internal(c, "failed to create meeting")
		return
	}
	response.Created(c, m)
}

// Get handles GET /api/meetings/:code. Student view: meeting metadata
// plus its approved questions, no instructor code.
func (h *Handler) Get(c *gin.Context) {
	m, err := h.repo.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.NotFound(c, "meeting not found")
		return
	}
	qs, err := h.questions.ListByMeeting(c.Request.Context(), m.ID, true)
	if err != nil {
		response.Internal(c, "failed to list questions")
		return
	}
	response.OK(c, gin.H{"meeting": m.StudentView(), "questions": qs})
}

// GetByInstructorCode handles GET /api/instructor/meetings/:code. The
// instructor view includes all questions regardless of moderation state.
func (h *Handler) GetByInstructorCode(c *gin.Context) {
	m, err := h.authorize(c)
	if err != nil {
		return
	}
	qs, err := h.questions.ListByMeeting(c.Request.Context(), m.ID, false)
	if err != nil {
		response.Internal(c, "failed to list questions")
		return
	}
	response.OK(c, gin.H{"meeting": m, "questions": qs})
}

// End handles POST /api/instructor/meetings/:code/end.
func (h *Handler) End(c *gin.Context) {
	m, err := h.authorize(c)
	if err != nil {
		return
	}
	if err := h.repo.End(c.Request.Context(), m.ID); err != nil {
		response.Internal(c, "failed to end meeting")
		return
	}
	response.OK(c, gin.H{"id": m.ID, "is_active": false})
}

// Restart handles POST /api/instructor/meetings/:code/restart.
func (h *Handler) Restart(c *gin.Context) {
	m, err := h.authorize(c)
	if err != nil {
		return
	}
	if err := h.repo.Restart(c.Request.Context(), m.ID); err != nil {
		response.Internal(c, "failed to restart meeting")
		return
	}
	response.OK(c, gin.H{"id": m.ID, "is_active": true})
}

// ListByClass handles GET /api/classes/:id/meetings (instructor only).
func (h *Handler) ListByClass(c *gin.Context) {
	classID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid class id")
		return
	}
	owner, err := h.classes.OwnerID(c.Request.Context(), classID)
	if err != nil {
		response.NotFound(c, "class not found")
		return
	}
	if owner != middleware.InstructorID(c) {
		response.Forbidden(c, "class belongs to another instructor")
		return
	}
	list, err := h.repo.ListByClass(c.Request.Context(), classID)
	if err != nil {
		response.Internal(c, "failed to list meetings")
		return
	}
	response.OK(c, gin.H{"meetings": list})
}

// authorize resolves the instructor code and checks the caller owns the
// meeting. Knowing the instructor code alone is not sufficient: every
// instructor endpoint also requires an authenticated owner.
func (h *Handler) authorize(c *gin.Context) (*models.Meeting, error) {
	m, err := h.repo.GetByInstructorCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "meeting not found")
		} else {
			response.Internal(c, "failed to load meeting")
		}
		return nil, err
	}
	owner, err := h.repo.OwnerID(c.Request.Context(), m.ID)
	if err != nil {
		response.Internal(c, "failed to load meeting")
		return nil, err
	}
	caller := middleware.InstructorID(c)
	if owner != caller && middleware.InstructorRole(c) != models.RoleAdmin {
		response.Forbidden(c, "meeting belongs to another instructor")
		return nil, errors.New("not owner")
	}
	return m, nil
}
