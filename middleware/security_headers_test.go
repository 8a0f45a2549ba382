package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Smartconnectcrm/smartconnect-website/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveWithSecurityHeaders(t *testing.T, env config.Environment) (*httptest.ResponseRecorder, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{Server: config.ServerConfig{Environment: env}}
	var nonce string

	r := gin.New()
	r.Use(SecurityHeadersMiddleware(cfg))
	r.GET("/", func(c *gin.Context) {
		nonce = c.GetString(CSPNonceKey)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w, nonce
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	w, nonce := serveWithSecurityHeaders(t, config.EnvDevelopment)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, w.Header().Get("Permissions-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	require.NotEmpty(t, nonce)
	csp := w.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "'nonce-"+nonce+"'")
	assert.Contains(t, csp, "frame-ancestors 'none'")
	assert.True(t, strings.HasSuffix(csp, "report-uri /api/csp-report"))
}

func TestSecurityHeadersMiddleware_Production(t *testing.T) {
	w, _ := serveWithSecurityHeaders(t, config.EnvProduction)
	assert.Equal(t, "max-age=63072000; includeSubDomains; preload", w.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeadersMiddleware_FreshNonce(t *testing.T) {
	_, first := serveWithSecurityHeaders(t, config.EnvDevelopment)
	_, second := serveWithSecurityHeaders(t, config.EnvDevelopment)
	assert.NotEqual(t, first, second)
}

func TestContentSecurityPolicy_NoNonce(t *testing.T) {
	csp := ContentSecurityPolicy("")
	assert.Contains(t, csp, "script-src 'self';")
	assert.NotContains(t, csp, "nonce")
}
