package errors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ValidationError     ErrorType = "VALIDATION_ERROR"
	NotFoundError       ErrorType = "NOT_FOUND"
	AuthError           ErrorType = "AUTHENTICATION_ERROR"
	RateLimitError      ErrorType = "RATE_LIMIT_EXCEEDED"
	DeliveryError       ErrorType = "DELIVERY_ERROR"
	StoreError          ErrorType = "STORE_ERROR"
	UnavailableError    ErrorType = "SERVICE_UNAVAILABLE"
	ServerError         ErrorType = "SERVER_ERROR"
	PayloadTooLargeType ErrorType = "PAYLOAD_TOO_LARGE"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	// RetryAfter is the number of seconds a client should wait, only set for rate limit errors.
	RetryAfter int   `json:"-"`
	Raw        error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Raw
}

// GetHTTPStatus returns the status the error should be rendered with.
func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return getHTTPStatus(e.Type)
}

// New creates a new AppError
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

func ValidationFailed(message string, details string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// AuthenticationFailed never carries a detail so that every auth failure looks the same.
func AuthenticationFailed(message string) *AppError {
	return &AppError{
		Type:       AuthError,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func RateLimitExceeded(message string, retryAfterSeconds int) *AppError {
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	return &AppError{
		Type:       RateLimitError,
		Message:    message,
		HTTPStatus: http.StatusTooManyRequests,
		RetryAfter: retryAfterSeconds,
	}
}

// DeliveryFailed is returned when an outbound mail could not be handed to the provider.
// The underlying cause stays in Raw and is never rendered.
func DeliveryFailed(message string, err error) *AppError {
	return &AppError{
		Type:       DeliveryError,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Raw:        err,
	}
}

func NewStoreError(message string, err error) *AppError {
	return &AppError{
		Type:       StoreError,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Raw:        err,
	}
}

func ServiceUnavailable(message string) *AppError {
	return &AppError{
		Type:       UnavailableError,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func PayloadTooLarge(message string) *AppError {
	return &AppError{
		Type:       PayloadTooLargeType,
		Message:    message,
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
}

func NotFound(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case AuthError:
		return http.StatusUnauthorized
	case RateLimitError:
		return http.StatusTooManyRequests
	case DeliveryError, StoreError:
		return http.StatusBadGateway
	case UnavailableError:
		return http.StatusServiceUnavailable
	case PayloadTooLargeType:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
