package classes

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/OER-Forge/raisemyhand/internal/middleware"
	"github.com/OER-Forge/raisemyhand/internal/models"
	"github.com/OER-Forge/raisemyhand/pkg/response"
)

// CreateRequest is the body for POST /api/classes.
type CreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// UpdateRequest is the body for PUT /api/classes/:id.
type UpdateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// Handler handles class HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a classes handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /api/classes.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	cl := &models.Class{
		InstructorID: middleware.InstructorID(c),
		Name:         req.Name,
		Description:  req.Description,
	}
	if err := h.repo.Create(c.Request.Context(), cl); err != nil {
		h.logger.Error("create class", zap.Error(err))
		response.Internal(c, "failed to create class")
		return
	}
	response.Created(c, cl)
}

// List handles GET /api/classes.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.ListByInstructor(c.Request.Context(), middleware.InstructorID(c))
	if err != nil {
		response.Internal(c, "failed to list classes")
		return
	}
	response.OK(c, gin.H{"classes": list})
}

// Get handles GET /api/classes/:id.
func (h *Handler) Get(c *gin.Context) {
	cl, err := h.authorize(c)
	if err != nil {
		return
	}
	response.OK(c, cl)
}

// Update handles PUT /api/classes/:id.
func (h *Handler) Update(c *gin.Context) {
	cl, err := h.authorize(c)
	if err != nil {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	cl.Name = req.Name
	cl.Description = req.Description
	if err := h.repo.Update(c.Request.Context(), cl); err != nil {
		response.Internal(c, "failed to update class")
		return
	}
	response.OK(c, cl)
}

// Archive handles POST /api/classes/:id/archive.
func (h *Handler) Archive(c *gin.Context) {
	cl, err := h.authorize(c)
	if err != nil {
		return
	}
	if err := h.repo.SetArchived(c.Request.Context(), cl.ID, true); err != nil {
		response.Internal(c, "failed to archive class")
		return
	}
	response.OK(c, gin.H{"id": cl.ID, "is_archived": true})
}

// Unarchive handles POST /api/classes/:id/unarchive.
func (h *Handler) Unarchive(c *gin.Context) {
	cl, err := h.authorize(c)
	if err != nil {
		return
	}
	if err := h.repo.SetArchived(c.Request.Context(), cl.ID, false); err != nil {
		response.Internal(c, "failed to unarchive class")
		return
	}
	response.OK(c, gin.H{"id": cl.ID, "is_archived": false})
}

func (h *Handler) authorize(c *gin.Context) (*models.Class, error) {
	classID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid class id")
		return nil, err
	}
	cl, err := h.repo.GetByID(c.Request.Context(), classID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "class not found")
		} else {
			response.Internal(c, "failed to load class")
		}
		return nil, err
	}
	if cl.InstructorID != middleware.InstructorID(c) && middleware.InstructorRole(c) != models.RoleAdmin {
		response.Forbidden(c, "class belongs to another instructor")
		return nil, errors.New("not owner")
	}
	return cl, nil
}
