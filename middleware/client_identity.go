package middleware

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gin-gonic/gin"
)

const (
	fingerprintUALimit   = 80
	fingerprintLangLimit = 40
	fingerprintHexLength = 32
)

// ClientIdentityMiddleware derives the key used for rate limiting and auditing.
// The address comes from gin's ClientIP, which only trusts forwarded headers
// from the engine's configured trusted proxies. Without an address the key
// falls back to a coarse header fingerprint.
func ClientIdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ClientIdentityKey, deriveClientIdentity(c))
		c.Next()
	}
}

// GetClientIdentity returns the identity set by ClientIdentityMiddleware,
// deriving it on the spot when the middleware did not run.
func GetClientIdentity(c *gin.Context) string {
	if id := c.GetString(ClientIdentityKey); id != "" {
		return id
	}
	return deriveClientIdentity(c)
}

func deriveClientIdentity(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return "ip:" + ip
	}
	return "fp:" + Fingerprint(c.GetHeader("User-Agent"), c.GetHeader("Accept-Language"))
}

// Fingerprint hashes the truncated User-Agent and Accept-Language headers.
func Fingerprint(userAgent, acceptLanguage string) string {
	sum := sha256.Sum256([]byte(truncateBytes(userAgent, fingerprintUALimit) + "|" + truncateBytes(acceptLanguage, fingerprintLangLimit)))
	return hex.EncodeToString(sum[:])[:fingerprintHexLength]
}

func truncateBytes(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
