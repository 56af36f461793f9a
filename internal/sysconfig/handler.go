package sysconfig

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/OER-Forge/raisemyhand/internal/middleware"
	"github.com/OER-Forge/raisemyhand/internal/models"
	"github.com/OER-Forge/raisemyhand/internal/realtime"
	"github.com/OER-Forge/raisemyhand/pkg/response"
)

// SetRequest is the body for PUT /api/admin/config/:key.
type SetRequest struct {
	Value string `json:"value" binding:"required"`
}

// Handler handles admin runtime-configuration endpoints.
type Handler struct {
	repo   *Repository
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewHandler creates a sysconfig handler.
func NewHandler(repo *Repository, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, hub: hub, logger: logger}
}

// List handles GET /api/admin/config.
func (h *Handler) List(c *gin.Context) {
	entries, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list config")
		return
	}
	response.OK(c, gin.H{"config": entries})
}

// Get handles GET /api/admin/config/:key.
func (h *Handler) Get(c *gin.Context) {
	sc, err := h.repo.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.respondRepoError(c, err, "failed to load config")
		return
	}
	response.OK(c, sc)
}

// Set handles PUT /api/admin/config/:key. Toggling maintenance mode is
// announced to every connected client across all meetings.
func (h *Handler) Set(c *gin.Context) {
	var req SetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	key := c.Param("key")
	sc, err := h.repo.Set(c.Request.Context(), key, req.Value, middleware.InstructorID(c).String())
	if err != nil {
		h.respondRepoError(c, err, "failed to update config")
		return
	}

	if key == models.ConfigKeyMaintenanceMode {
		h.logger.Info("maintenance mode changed", zap.Bool("enabled", sc.BoolValue()))
		h.hub.PublishToAll(realtime.MaintenanceMode(sc.BoolValue()))
	}
	response.OK(c, sc)
}

func (h *Handler) respondRepoError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "config key not found")
		return
	}
	h.logger.Error(fallback, zap.Error(err))
	response.Internal(c, fallback)
}
