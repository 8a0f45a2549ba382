package middleware

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/Smartconnectcrm/smartconnect-website/config"
	"github.com/gin-gonic/gin"
)

// SecurityHeadersMiddleware adds security-related HTTP headers to all responses,
// including a Content-Security-Policy with a fresh script nonce per request.
func SecurityHeadersMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		nonce, err := newNonce()
		if err != nil {
			nonce = ""
		}
		c.Set(CSPNonceKey, nonce)
		c.Header("Content-Security-Policy", ContentSecurityPolicy(nonce))

		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "camera=(), microphone=(), geolocation=(), interest-cohort=()")

		// Only in production; local development runs over plain HTTP.
		if cfg.IsProduction() {
			c.Header("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
		}

		c.Next()
	}
}

// ContentSecurityPolicy renders the policy. An empty nonce leaves only
// same-origin scripts allowed.
func ContentSecurityPolicy(nonce string) string {
	scriptSrc := "script-src 'self'"
	if nonce != "" {
		scriptSrc += " 'nonce-" + nonce + "'"
	}
	return strings.Join([]string{
		"default-src 'self'",
		scriptSrc,
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"font-src 'self'",
		"connect-src 'self'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
		"report-uri /api/csp-report",
	}, "; ")
}

func newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
