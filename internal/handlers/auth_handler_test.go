package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirantsoa/therapy-api/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSetAuthCookieAttributes(t *testing.T) {
	h := &Handler{Cfg: &config.Config{Env: "development"}}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	h.setAuthCookie(c, "the-token")

	cookie := w.Header().Get("Set-Cookie")
	require.NotEmpty(t, cookie)
	assert.Contains(t, cookie, "authToken=the-token")
	assert.Contains(t, cookie, "HttpOnly")
	assert.Contains(t, cookie, "SameSite=Strict")
	assert.Contains(t, cookie, "Path=/")
	assert.NotContains(t, cookie, "Secure")
}

func TestSetAuthCookieSecureInProduction(t *testing.T) {
	h := &Handler{Cfg: &config.Config{Env: "production"}}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	h.setAuthCookie(c, "the-token")

	assert.Contains(t, w.Header().Get("Set-Cookie"), "Secure")
}

func TestClearAuthCookie(t *testing.T) {
	h := &Handler{Cfg: &config.Config{Env: "development"}}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	h.clearAuthCookie(c)

	cookie := w.Header().Get("Set-Cookie")
	require.NotEmpty(t, cookie)
	assert.Contains(t, cookie, "authToken=")
	assert.Contains(t, cookie, "Max-Age=0")
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", normalizeEmail("  A@X.COM "))
	assert.Equal(t, "a@x.com", normalizeEmail("a@x.com"))
}
