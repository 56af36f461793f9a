package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/OER-Forge/raisemyhand/internal/middleware"
)

func adminRouter(h *Handler, adminID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextInstructorID, adminID)
	})
	router.PUT("/instructors/:id/deactivate", h.DeactivateInstructor)
	router.POST("/instructors/bulk/deactivate", h.BulkDeactivate)
	router.GET("/instructors", h.ListInstructors)
	return router
}

func TestDeactivateInstructor_SelfGuard(t *testing.T) {
	adminID := uuid.New()
	h := NewHandler(NewRepository(nil), nil, nil, zap.NewNop())
	router := adminRouter(h, adminID)

	req := httptest.NewRequest(http.MethodPut, "/instructors/"+adminID.String()+"/deactivate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "own account")
}

func TestDeactivateInstructor_BadID(t *testing.T) {
	h := NewHandler(NewRepository(nil), nil, nil, zap.NewNop())
	router := adminRouter(h, uuid.New())

	req := httptest.NewRequest(http.MethodPut, "/instructors/not-a-uuid/deactivate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkDeactivate_SkipsSelf(t *testing.T) {
	adminID := uuid.New()
	h := NewHandler(NewRepository(nil), nil, nil, zap.NewNop())
	router := adminRouter(h, adminID)

	// The sole target is the caller, so nothing reaches the repository.
	body := `{"ids": ["` + adminID.String() + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/instructors/bulk/deactivate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"changed":0`)
	assert.Contains(t, w.Body.String(), adminID.String())
}

func TestListInstructors_RejectsUnknownStatus(t *testing.T) {
	h := NewHandler(NewRepository(nil), nil, nil, zap.NewNop())
	router := adminRouter(h, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/instructors?status=suspended", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
