package handlers

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "github.com/Smartconnectcrm/smartconnect-website/errors"
	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/Smartconnectcrm/smartconnect-website/services"
	"github.com/Smartconnectcrm/smartconnect-website/types"
	"github.com/gin-gonic/gin"
)

// ContactLogsHandler serves the admission audit trail to operators.
type ContactLogsHandler struct {
	audit        AuditReader
	defaultLimit int
	maxLimit     int
}

// NewContactLogsHandler creates a new ContactLogsHandler.
func NewContactLogsHandler(audit AuditReader, defaultLimit, maxLimit int) *ContactLogsHandler {
	if maxLimit <= 0 {
		maxLimit = 200
	}
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = min(50, maxLimit)
	}
	return &ContactLogsHandler{audit: audit, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// ListContactLogs godoc
// @Summary      List recent contact submissions
// @Description  Returns privacy-reduced audit entries, newest first. Emails are hashed.
// @Tags         admin
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of entries (default 50, max 200)"
// @Success      200    {array}   types.AuditLogEntry
// @Failure      400    {object}  types.ContactErrorResponse
// @Failure      401    {object}  types.ContactErrorResponse
// @Failure      502    {object}  types.ContactErrorResponse
// @Failure      503    {object}  types.ContactErrorResponse
// @Router       /admin/contact-logs [get]
// @Security     BearerAuth
func (h *ContactLogsHandler) ListContactLogs(c *gin.Context) {
	limit, err := h.parseLimit(c.Query("limit"))
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid limit", err.Error()))
		return
	}

	if !h.audit.Enabled() {
		_ = c.Error(apperrors.ServiceUnavailable("Audit log disabled"))
		return
	}

	entries, err := h.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, services.ErrAuditDisabled) {
			_ = c.Error(apperrors.ServiceUnavailable("Audit log disabled"))
			return
		}
		logger.GetLogger().Errorw("Failed to read audit log", "error", err)
		_ = c.Error(apperrors.NewStoreError("Audit store unavailable", err))
		return
	}
	if entries == nil {
		entries = []types.AuditLogEntry{}
	}

	c.JSON(http.StatusOK, entries)
}

// parseLimit applies the default when absent and clamps to the maximum.
func (h *ContactLogsHandler) parseLimit(raw string) (int, error) {
	if raw == "" {
		return h.defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.New("limit must be at least 1")
	}
	return min(n, h.maxLimit), nil
}
