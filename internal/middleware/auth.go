package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/OER-Forge/raisemyhand/internal/models"
	"github.com/OER-Forge/raisemyhand/pkg/response"
)

const (
	// ContextInstructorID is the key for the authenticated instructor's ID.
	ContextInstructorID = "instructor_id"
	// ContextInstructorRole is the key for the authenticated instructor's role.
	ContextInstructorRole = "instructor_role"
)

// TokenValidator validates a bearer JWT and returns the instructor identity.
type TokenValidator func(token string) (instructorID uuid.UUID, role models.Role, err error)

// APIKeyValidator validates an X-API-Key header value against the store.
type APIKeyValidator func(ctx context.Context, key string) (instructorID uuid.UUID, role models.Role, err error)

// InstructorAuth authenticates instructor endpoints by JWT bearer token or
// API key. Either credential sets the instructor identity in the context.
func InstructorAuth(validateToken TokenValidator, validateKey APIKeyValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-Key"); key != "" && validateKey != nil {
			id, role, err := validateKey(c.Request.Context(), key)
			if err != nil {
				response.Unauthorized(c, "invalid api key")
				c.Abort()
				return
			}
			c.Set(ContextInstructorID, id)
			c.Set(ContextInstructorRole, role)
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing credentials")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		id, role, err := validateToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextInstructorID, id)
		c.Set(ContextInstructorRole, role)
		c.Next()
	}
}

// InstructorID returns the authenticated instructor's ID from the context.
func InstructorID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ContextInstructorID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// InstructorRole returns the authenticated instructor's role from the context.
func InstructorRole(c *gin.Context) models.Role {
	if v, ok := c.Get(ContextInstructorRole); ok {
		if role, ok := v.(models.Role); ok {
			return role
		}
	}
	return ""
}

// RequireRole allows only the given roles past this point.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{})
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[InstructorRole(c)]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
