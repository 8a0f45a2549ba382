package middleware

import (
	"crypto/subtle"
	"strings"

	apperrors "github.com/Smartconnectcrm/smartconnect-website/errors"
	"github.com/gin-gonic/gin"
)

// AdminAuth guards operator endpoints with a static bearer credential.
// Every failure, including an unset key, answers the same 401.
func AdminAuth(apiKey string) gin.HandlerFunc {
	expected := []byte(apiKey)
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if len(expected) == 0 || !ok || subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			_ = c.Error(apperrors.AuthenticationFailed("Unauthorized"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
