package middleware

import "github.com/Smartconnectcrm/smartconnect-website/logger"

// Keys stored on the gin context by the middleware in this package.
const (
	// RequestIDKey holds the per-request id (string).
	RequestIDKey = logger.RequestIDKey
	// TraceIDKey holds the per-submission trace id set by handlers (string).
	TraceIDKey = logger.TraceIDKey
	// ClientIdentityKey holds the rate-limit identity, "ip:..." or "fp:..." (string).
	ClientIdentityKey = "client_identity"
	// CSPNonceKey holds the nonce embedded in this response's Content-Security-Policy.
	CSPNonceKey = "csp_nonce"
)
