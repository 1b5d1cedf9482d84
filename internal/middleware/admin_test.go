package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewAdminMiddleware(t *testing.T) {
	t.Run("with key", func(t *testing.T) {
		am := NewAdminMiddleware("  test-admin-key ")
		assert.Equal(t, "test-admin-key", am.apiKey)
		assert.True(t, am.Enabled())
	})

	t.Run("without key", func(t *testing.T) {
		am := NewAdminMiddleware("")
		assert.False(t, am.Enabled())
	})
}

func TestAdminMiddleware_RequireAdminAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	createTestRouter := func(am *AdminMiddleware) *gin.Engine {
		router := gin.New()
		router.Use(am.RequireAdminAuth())
		router.DELETE("/admin/test", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "admin access granted"})
		})
		return router
	}
	router := createTestRouter(NewAdminMiddleware("test-admin-key"))

	t.Run("valid API key in Authorization header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/admin/test", nil)
		req.Header.Set("Authorization", "Bearer test-admin-key")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "admin access granted")
	})

	t.Run("valid API key in X-API-Key header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/admin/test", nil)
		req.Header.Set("X-API-Key", "test-admin-key")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("query parameter is not accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/admin/test?api_key=test-admin-key", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing API key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/admin/test", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Valid admin API key required")
	})

	t.Run("invalid Authorization header format", func(t *testing.T) {
		testCases := []string{
			"test-admin-key",
			"Basic test-admin-key",
			"Bearer",
			"Bearer test-admin-key extra",
			"Bearer invalid-key",
		}

		for _, authHeader := range testCases {
			req := httptest.NewRequest(http.MethodDelete, "/admin/test", nil)
			req.Header.Set("Authorization", authHeader)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code, authHeader)
		}
	})

	t.Run("disabled without key", func(t *testing.T) {
		disabled := createTestRouter(NewAdminMiddleware(""))
		req := httptest.NewRequest(http.MethodDelete, "/admin/test", nil)
		req.Header.Set("X-API-Key", "")
		w := httptest.NewRecorder()

		disabled.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "Admin endpoints are disabled")
	})
}

func TestAdminMiddleware_ValidateAdminKey(t *testing.T) {
	am := NewAdminMiddleware("test-admin-key")

	assert.True(t, am.ValidateAdminKey("test-admin-key"))
	assert.False(t, am.ValidateAdminKey("invalid-key"))
	assert.False(t, am.ValidateAdminKey(""))
	assert.False(t, NewAdminMiddleware("").ValidateAdminKey(""))
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(origins ...string) *gin.Engine {
		router := gin.New()
		router.Use(CORS(origins))
		router.GET("/api/v1/leaderboard", func(c *gin.Context) { c.Status(http.StatusOK) })
		return router
	}

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil)
		req.Header.Set("Origin", "https://clawquants.io")
		w := httptest.NewRecorder()
		newRouter("https://clawquants.io").ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://clawquants.io", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		newRouter("https://clawquants.io").ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard and preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/leaderboard", nil)
		req.Header.Set("Origin", "https://anywhere.example")
		w := httptest.NewRecorder()
		newRouter("*").ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://anywhere.example", w.Header().Get("Access-Control-Allow-Origin"))
	})
}
