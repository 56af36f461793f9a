package auth

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/OER-Forge/raisemyhand/internal/middleware"
	"github.com/OER-Forge/raisemyhand/internal/models"
	"github.com/OER-Forge/raisemyhand/pkg/response"
	"github.com/OER-Forge/raisemyhand/pkg/utils"
)

// tempPasswordLength matches the generated credential handed to an
// instructor after an admin reset or an admin-created account.
const tempPasswordLength = 16

// AdminCreateRequest is the body for POST /api/admin/instructors. The
// account starts with a generated temporary password.
type AdminCreateRequest struct {
	Username    string `json:"username" binding:"required,min=3"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// DeactivateRequest carries the optional audit reason.
type DeactivateRequest struct {
	Reason string `json:"reason"`
}

// BulkRequest names the accounts a bulk activate or deactivate targets.
type BulkRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1"`
}

// CreateInstructor handles POST /api/admin/instructors. The temporary
// password is returned once; the account shows as a placeholder until
// its first login.
func (h *Handler) CreateInstructor(c *gin.Context) {
	var req AdminCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if _, err := h.repo.GetByUsername(c.Request.Context(), req.Username); err == nil {
		response.Conflict(c, "username already taken")
		return
	}

	temp := utils.RandomCode(tempPasswordLength)
	hash, err := utils.HashPassword(temp)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	instructor := &models.Instructor{
		Username:     req.Username,
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		Role:         models.RoleInstructor,
	}
	if err := h.repo.Create(c.Request.Context(), instructor); err != nil {
		h.logger.Error("admin create instructor", zap.Error(err))
		response.Internal(c, "failed to create account")
		return
	}

	h.logger.Info("instructor created by admin",
		zap.String("admin_id", middleware.InstructorID(c).String()),
		zap.String("username", instructor.Username))
	response.Created(c, gin.H{
		"instructor":         instructor.ToPublic(),
		"temporary_password": temp,
	})
}

// ListInstructors handles GET /api/admin/instructors with optional
// search, status, limit, and offset query parameters.
func (h *Handler) ListInstructors(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", BadgeActive, BadgeInactive, BadgePlaceholder:
	default:
		response.BadRequest(c, "status must be active, inactive, or placeholder")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.repo.ListInstructors(c.Request.Context(), InstructorFilter{
		Search: c.Query("search"),
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.logger.Error("list instructors", zap.Error(err))
		response.Internal(c, "failed to list instructors")
		return
	}
	response.OK(c, gin.H{"instructors": list})
}

// GetInstructor handles GET /api/admin/instructors/:id.
func (h *Handler) GetInstructor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid instructor id")
		return
	}
	overview, err := h.repo.GetInstructorOverview(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "instructor not found")
		return
	}
	response.OK(c, overview)
}

// DeactivateInstructor handles PUT /api/admin/instructors/:id/deactivate.
// Admins cannot deactivate their own account.
func (h *Handler) DeactivateInstructor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid instructor id")
		return
	}
	if id == middleware.InstructorID(c) {
		response.BadRequest(c, "cannot deactivate your own account")
		return
	}
	var req DeactivateRequest
	_ = c.ShouldBindJSON(&req)

	switch err := h.repo.DeactivateInstructor(c.Request.Context(), id); {
	case errors.Is(err, ErrInstructorNotFound):
		response.NotFound(c, "instructor not found")
		return
	case errors.Is(err, ErrAlreadyInactive):
		response.Conflict(c, "instructor is already inactive")
		return
	case err != nil:
		h.logger.Error("deactivate instructor", zap.Error(err))
		response.Internal(c, "failed to deactivate instructor")
		return
	}

	h.logger.Warn("instructor deactivated",
		zap.String("admin_id", middleware.InstructorID(c).String()),
		zap.String("instructor_id", id.String()),
		zap.String("reason", req.Reason))
	response.OK(c, gin.H{"message": "instructor deactivated"})
}

// ActivateInstructor handles PUT /api/admin/instructors/:id/activate.
// Classes archived and keys revoked by the deactivation stay that way.
func (h *Handler) ActivateInstructor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid instructor id")
		return
	}

	switch err := h.repo.ActivateInstructor(c.Request.Context(), id); {
	case errors.Is(err, ErrInstructorNotFound):
		response.NotFound(c, "instructor not found")
		return
	case errors.Is(err, ErrAlreadyActive):
		response.Conflict(c, "instructor is already active")
		return
	case err != nil:
		h.logger.Error("activate instructor", zap.Error(err))
		response.Internal(c, "failed to activate instructor")
		return
	}

	h.logger.Info("instructor reactivated",
		zap.String("admin_id", middleware.InstructorID(c).String()),
		zap.String("instructor_id", id.String()))
	response.OK(c, gin.H{"message": "instructor reactivated"})
}

// ResetInstructorPassword handles POST /api/admin/instructors/:id/reset-password.
// The temporary password is returned once and never stored in the clear.
func (h *Handler) ResetInstructorPassword(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid instructor id")
		return
	}

	temp := utils.RandomCode(tempPasswordLength)
	hash, err := utils.HashPassword(temp)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.repo.UpdatePassword(c.Request.Context(), id, hash); err != nil {
		response.NotFound(c, "instructor not found")
		return
	}

	h.logger.Warn("instructor password reset",
		zap.String("admin_id", middleware.InstructorID(c).String()),
		zap.String("instructor_id", id.String()))
	response.OK(c, gin.H{"temporary_password": temp})
}

// BulkDeactivate handles POST /api/admin/instructors/bulk/deactivate.
// Accounts already inactive, unknown, or belonging to the caller are
// reported back as skipped.
func (h *Handler) BulkDeactivate(c *gin.Context) {
	h.bulkSetActive(c, false)
}

// BulkActivate handles POST /api/admin/instructors/bulk/activate.
func (h *Handler) BulkActivate(c *gin.Context) {
	h.bulkSetActive(c, true)
}

func (h *Handler) bulkSetActive(c *gin.Context, active bool) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	self := middleware.InstructorID(c)
	changed := 0
	skipped := []uuid.UUID{}
	for _, id := range req.IDs {
		if !active && id == self {
			skipped = append(skipped, id)
			continue
		}
		var err error
		if active {
			err = h.repo.ActivateInstructor(c.Request.Context(), id)
		} else {
			err = h.repo.DeactivateInstructor(c.Request.Context(), id)
		}
		switch {
		case err == nil:
			changed++
		case errors.Is(err, ErrInstructorNotFound),
			errors.Is(err, ErrAlreadyActive),
			errors.Is(err, ErrAlreadyInactive):
			skipped = append(skipped, id)
		default:
			h.logger.Error("bulk instructor update", zap.Error(err))
			response.Internal(c, "failed to update instructors")
			return
		}
	}

	h.logger.Info("bulk instructor update",
		zap.String("admin_id", self.String()),
		zap.Bool("active", active),
		zap.Int("changed", changed),
		zap.Int("skipped", len(skipped)))
	response.OK(c, gin.H{"changed": changed, "skipped": skipped})
}
