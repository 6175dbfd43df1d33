package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewAdminMiddleware(t *testing.T) {
	assert.True(t, NewAdminMiddleware(" test-admin-key ").Enabled())
	assert.False(t, NewAdminMiddleware("").Enabled())
}

func TestAdminMiddleware_RequireAdminAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	createTestRouter := func(key string) *gin.Engine {
		am := NewAdminMiddleware(key)
		router := gin.New()
		router.Use(am.RequireAdminAuth())
		router.POST("/admin/test", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "admin access granted"})
		})
		return router
	}

	tests := []struct {
		name     string
		key      string
		header   string
		value    string
		expected int
	}{
		{"valid bearer token", "test-admin-key", "Authorization", "Bearer test-admin-key", http.StatusOK},
		{"valid X-API-Key", "test-admin-key", "X-API-Key", "test-admin-key", http.StatusOK},
		{"missing key", "test-admin-key", "", "", http.StatusUnauthorized},
		{"invalid bearer token", "test-admin-key", "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"bearer without scheme", "test-admin-key", "Authorization", "test-admin-key", http.StatusUnauthorized},
		{"no key configured", "", "X-API-Key", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := createTestRouter(tt.key)
			req := httptest.NewRequest("POST", "/admin/test", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
			if tt.expected == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), "Valid admin API key required")
			}
		})
	}
}

func TestAdminMiddleware_ValidateAdminKey(t *testing.T) {
	am := NewAdminMiddleware("secret")
	assert.True(t, am.ValidateAdminKey("secret"))
	assert.False(t, am.ValidateAdminKey("Secret"))
	assert.False(t, am.ValidateAdminKey(""))
}
