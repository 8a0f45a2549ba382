package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/Smartconnectcrm/smartconnect-website/middleware"
	"github.com/gin-gonic/gin"
)

const (
	// CSPReportBodyLimit is how much of a report body is read.
	CSPReportBodyLimit = 50_000

	redactMaxDepth  = 4
	redactMaxString = 200
	redactMaxItems  = 3
)

// Keys whose values may carry visitor URLs or page content.
var redactedKeyFragments = []string{"url", "uri", "referrer", "document", "source", "blocked", "location"}

// CSPReportHandler ingests browser Content-Security-Policy violation reports.
// Reports are logged in redacted form and never stored.
type CSPReportHandler struct {
	limiter ReportLimiter
}

// NewCSPReportHandler creates a new CSPReportHandler.
func NewCSPReportHandler(limiter ReportLimiter) *CSPReportHandler {
	return &CSPReportHandler{limiter: limiter}
}

// ReceiveReport godoc
// @Summary      Receive a CSP violation report
// @Description  Accepts application/csp-report and application/reports+json bodies. Always answers 204.
// @Tags         security
// @Accept       json
// @Success      204
// @Router       /csp-report [post]
func (h *CSPReportHandler) ReceiveReport(c *gin.Context) {
	// Browsers retry on errors, so every path ends in 204.
	defer c.Status(http.StatusNoContent)

	if !h.limiter.Allow(middleware.GetClientIdentity(c)) {
		return
	}

	contentType := c.GetHeader("Content-Type")
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, CSPReportBodyLimit))
	if err != nil {
		logger.GetLogger().Debugw("Failed to read CSP report", "error", err)
		return
	}

	logger.GetLogger().Warnw("CSP violation report",
		"contentType", contentType,
		"report", summarizeCSPReport(contentType, raw))
}

// summarizeCSPReport extracts the loggable part of a report body.
func summarizeCSPReport(contentType string, raw []byte) interface{} {
	var parsed interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return map[string]interface{}{"note": "unparsed"}
	}

	if reports, ok := parsed.([]interface{}); ok && strings.Contains(contentType, "application/reports+json") {
		var first map[string]interface{}
		if len(reports) > 0 {
			first, _ = reports[0].(map[string]interface{})
		}
		reportType, ok := first["type"].(string)
		if !ok {
			reportType = "unknown"
		}
		return map[string]interface{}{
			"type": reportType,
			"body": redactDeep(first["body"], 0),
		}
	}

	if obj, ok := parsed.(map[string]interface{}); ok {
		if legacy, ok := obj["csp-report"]; ok && legacy != nil {
			return redactDeep(legacy, 0)
		}
		return redactDeep(obj, 0)
	}
	if arr, ok := parsed.([]interface{}); ok {
		return redactDeep(arr, 0)
	}
	return map[string]interface{}{"note": "unparsed"}
}

// redactDeep drops URL-like fields, truncates strings and arrays,
// and cuts nesting below a fixed depth.
func redactDeep(value interface{}, depth int) interface{} {
	if depth > redactMaxDepth {
		return "[omitted]"
	}

	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return truncateString(v, redactMaxString)
	case float64, bool:
		return v
	case []interface{}:
		n := min(len(v), redactMaxItems)
		out := make([]interface{}, 0, n)
		for _, item := range v[:n] {
			out = append(out, redactDeep(item, depth+1))
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			if isRedactedKey(k) {
				out[k] = "[redacted]"
				continue
			}
			out[k] = redactDeep(item, depth+1)
		}
		return out
	default:
		return "[omitted]"
	}
}

func isRedactedKey(key string) bool {
	key = strings.ToLower(key)
	for _, fragment := range redactedKeyFragments {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}

func truncateString(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
