package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func doRequest(router *gin.Engine, ip string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":12345"
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_BlocksAfterBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(1, 3))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1"), "request %d within burst", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "10.0.0.1"))
}

func TestRateLimit_PerIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(1, 1))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.2"),
		"one noisy client must not affect another")
}

func TestIPLimiter_EvictsIdleEntries(t *testing.T) {
	l := newIPLimiter(1, 1)
	l.allow("10.0.0.1")
	l.allow("10.0.0.2")
	assert.Len(t, l.limiters, 2)

	// Force the cleanup pass with everything stale.
	for ip, e := range l.limiters {
		e.lastSeen = e.lastSeen.Add(-2 * limiterIdleEvict)
		l.limiters[ip] = e
	}
	l.cleanupAt = l.limiters["10.0.0.1"].lastSeen

	l.allow("10.0.0.3")
	assert.Len(t, l.limiters, 1, "stale entries evicted, new entry kept")
}
