package auth

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/OER-Forge/raisemyhand/internal/middleware"
	"github.com/OER-Forge/raisemyhand/internal/models"
	"github.com/OER-Forge/raisemyhand/pkg/response"
	"github.com/OER-Forge/raisemyhand/pkg/utils"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3"`
	Password    string `json:"password" binding:"required,min=8"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateKeyRequest is the body for POST /api/keys.
type CreateKeyRequest struct {
	Name string `json:"name" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token      string                  `json:"token"`
	Instructor models.InstructorPublic `json:"instructor"`
}

// RegistrationGate reports whether new signups are currently allowed.
// Wired to the system_config registration toggle; nil means always open.
type RegistrationGate func(ctx context.Context) bool

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	gate   RegistrationGate
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, gate RegistrationGate, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, gate: gate, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	if h.gate != nil && !h.gate(c.Request.Context()) {
		response.Forbidden(c, "instructor registration is currently disabled")
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if _, err := h.repo.GetByUsername(c.Request.Context(), req.Username); err == nil {
		response.Conflict(c, "username already taken")
		return
	}

	hash, err := utils.HashPassword(req.Password)
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
		h.logger.Error("create instructor", zap.Error(err))
		response.Internal(c, "failed to create account")
		return
	}

	token, err := h.jwt.Generate(instructor.ID, instructor.Username, instructor.Role)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, TokenResponse{Token: token, Instructor: instructor.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	instructor, err := h.repo.GetByUsername(c.Request.Context(), req.Username)
	if err != nil || !utils.CheckPassword(req.Password, instructor.PasswordHash) {
		response.Unauthorized(c, "invalid username or password")
		return
	}

	_ = h.repo.TouchLastLogin(c.Request.Context(), instructor.ID)

	token, err := h.jwt.Generate(instructor.ID, instructor.Username, instructor.Role)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, Instructor: instructor.ToPublic()})
}

// Me handles GET /api/me.
func (h *Handler) Me(c *gin.Context) {
	instructor, err := h.repo.GetByID(c.Request.Context(), middleware.InstructorID(c))
	if err != nil {
		response.NotFound(c, "account not found")
		return
	}
	response.OK(c, instructor.ToPublic())
}

// CreateAPIKey handles POST /api/keys. The key material is returned once
// and never readable again.
func (h *Handler) CreateAPIKey(c *gin.Context) {
	var req CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	key := &models.APIKey{
		InstructorID: middleware.InstructorID(c),
		Key:          utils.RandomAPIKey(),
		Name:         req.Name,
	}
	if err := h.repo.CreateAPIKey(c.Request.Context(), key); err != nil {
		h.logger.Error("create api key", zap.Error(err))
		response.Internal(c, "failed to create api key")
		return
	}
	response.Created(c, key)
}

// ListAPIKeys handles GET /api/keys.
func (h *Handler) ListAPIKeys(c *gin.Context) {
	keys, err := h.repo.ListAPIKeys(c.Request.Context(), middleware.InstructorID(c))
	if err != nil {
		response.Internal(c, "failed to list api keys")
		return
	}
	response.OK(c, gin.H{"keys": keys})
}

// RevokeAPIKey handles DELETE /api/keys/:id.
func (h *Handler) RevokeAPIKey(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid key id")
		return
	}
	if err := h.repo.RevokeAPIKey(c.Request.Context(), keyID, middleware.InstructorID(c)); err != nil {
		response.NotFound(c, "api key not found")
		return
	}
	response.NoContent(c)
}
