package handlers

import (
	"errors"
	"net/http"

	apperrors "github.com/Smartconnectcrm/smartconnect-website/errors"
	"github.com/Smartconnectcrm/smartconnect-website/middleware"
	"github.com/Smartconnectcrm/smartconnect-website/services"
	"github.com/Smartconnectcrm/smartconnect-website/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContactBodyLimit bounds the contact request body. The field caps leave
// plenty of room even for multi-byte text.
const ContactBodyLimit = 32 << 10

// ContactHandler handles the public contact form endpoint.
type ContactHandler struct {
	admission ContactAdmitter
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(admission ContactAdmitter) *ContactHandler {
	return &ContactHandler{admission: admission}
}

// SubmitContact godoc
// @Summary      Submit the contact form
// @Description  Runs a submission through rate limiting, bot detection and content checks, then mails it.
// @Description  Blocked submissions receive the same success response as delivered ones.
// @Tags         contact
// @Accept       json
// @Produce      json
// @Param        body  body      types.SubmissionRequest  true  "Contact form payload"
// @Success      200   {object}  types.ContactSuccessResponse
// @Failure      400   {object}  types.ContactErrorResponse  "Invalid request, missing fields or invalid email"
// @Failure      413   {object}  types.ContactErrorResponse
// @Failure      429   {object}  types.ContactErrorResponse  "Rate limited, see Retry-After"
// @Failure      502   {object}  types.ContactErrorResponse  "Mail delivery failed"
// @Router       /contact [post]
func (h *ContactHandler) SubmitContact(c *gin.Context) {
	traceID := uuid.NewString()
	c.Set(middleware.TraceIDKey, traceID)

	// Field types are coerced while decoding; only a body that is not a JSON
	// object ends up malformed, and it still passes the rate limiter first.
	var req types.SubmissionRequest
	malformed := false
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = c.Error(apperrors.PayloadTooLarge("Payload too large"))
			return
		}
		malformed = true
		req = types.SubmissionRequest{}
	}

	decision := h.admission.Admit(c.Request.Context(), services.Submission{
		Request:        req,
		ClientIdentity: middleware.GetClientIdentity(c),
		TraceID:        traceID,
		Malformed:      malformed,
	})

	if !decision.VisibleSuccess() {
		_ = c.Error(decisionError(decision))
		return
	}

	c.JSON(http.StatusOK, types.ContactSuccessResponse{Success: true, TraceID: traceID})
}

// decisionError maps a visible rejection onto the error the middleware renders.
func decisionError(d types.AdmissionDecision) *apperrors.AppError {
	switch d.Status {
	case http.StatusTooManyRequests:
		return apperrors.RateLimitExceeded(d.UserMessage, services.RetryAfterSeconds(d.RetryAfter))
	case http.StatusBadRequest:
		return apperrors.ValidationFailed(d.UserMessage, d.Reason)
	case http.StatusBadGateway:
		return apperrors.DeliveryFailed(d.UserMessage, nil)
	default:
		appErr := apperrors.New(apperrors.ServerError, d.UserMessage, d.Reason)
		if d.Status >= 400 {
			appErr.HTTPStatus = d.Status
		}
		return appErr
	}
}
