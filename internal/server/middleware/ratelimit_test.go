// file: internal/server/middleware/ratelimit_test.go
// version: 2.0.0
// guid: a28c0f41-3525-4fcc-a3a6-18a6e300bb11

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewIPRateLimiter_Defaults(t *testing.T) {
	t.Parallel()

	limiter := NewIPRateLimiter(0, 0)
	assert.Equal(t, 1, limiter.requestsPerMin)
	assert.Equal(t, 1, limiter.burst)
	assert.Equal(t, 60, limiter.retryAfterSeconds())
}

func request(router *gin.Engine, path, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remote
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewIPRateLimiter(1, 1, "/api/health").Middleware())
	router.GET("/api/v1/books", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	assert.Equal(t, http.StatusOK, request(router, "/api/v1/books", "192.0.2.1:1234").Code)

	limited := request(router, "/api/v1/books", "192.0.2.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Contains(t, limited.Body.String(), "rate limit exceeded")
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))

	// Different IP should have its own bucket.
	assert.Equal(t, http.StatusOK, request(router, "/api/v1/books", "198.51.100.3:4321").Code)

	// Exempt paths are never limited.
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, request(router, "/api/health", "192.0.2.1:1234").Code)
	}
}
