package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Smartconnectcrm/smartconnect-website/config"
	"github.com/Smartconnectcrm/smartconnect-website/internal/classifier"
	"github.com/Smartconnectcrm/smartconnect-website/middleware"
	"github.com/Smartconnectcrm/smartconnect-website/services"
	"github.com/Smartconnectcrm/smartconnect-website/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupContactRouter(admitter ContactAdmitter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.NoStore(), middleware.ErrorHandler(), middleware.ClientIdentityMiddleware())
	api.POST("/contact", middleware.BodyLimit(ContactBodyLimit), NewContactHandler(admitter).SubmitContact)
	return r
}

func postContact(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, "/api/contact", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:40000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const validBody = `{"name":"Erika","email":"erika@example.de","subject":"Demo","message":"Wir möchten eine Demo.","company":"","startedAt":1718000000000}`

func TestSubmitContact_Success(t *testing.T) {
	admitter := new(MockAdmitter)
	admitter.On("Admit", mock.Anything, mock.MatchedBy(func(sub services.Submission) bool {
		return sub.ClientIdentity == "ip:203.0.113.7" &&
			sub.Request.Email == "erika@example.de" &&
			sub.Request.StartedAt.Valid &&
			sub.TraceID != ""
	})).Return(types.AdmissionDecision{Outcome: types.OutcomeSent, Status: http.StatusOK})

	w := postContact(setupContactRouter(admitter), validBody)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var resp types.ContactSuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	_, err := uuid.Parse(resp.TraceID)
	assert.NoError(t, err)
	admitter.AssertExpectations(t)
}

func TestSubmitContact_SilentRejectLooksLikeSuccess(t *testing.T) {
	admitter := new(MockAdmitter)
	admitter.On("Admit", mock.Anything, mock.Anything).Return(types.AdmissionDecision{
		Outcome: types.OutcomeBlockedHoneypot,
		Reason:  types.ReasonHoneypot,
		Status:  http.StatusOK,
	})

	w := postContact(setupContactRouter(admitter), validBody)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
	assert.Equal(t, true, resp["success"])
	assert.NotContains(t, w.Body.String(), "honeypot")
}

func TestSubmitContact_VisibleRejections(t *testing.T) {
	tests := []struct {
		name           string
		decision       types.AdmissionDecision
		expectedStatus int
		expectedError  string
		retryAfter     string
	}{
		{
			name: "rate limited",
			decision: types.AdmissionDecision{
				Outcome:     types.OutcomeBlockedRateLimit,
				Status:      http.StatusTooManyRequests,
				UserMessage: services.MsgRateLimited,
				RetryAfter:  90500 * time.Millisecond,
			},
			expectedStatus: http.StatusTooManyRequests,
			expectedError:  services.MsgRateLimited,
			retryAfter:     "91",
		},
		{
			name: "missing fields",
			decision: types.AdmissionDecision{
				Outcome:     types.OutcomeRejectedInvalid,
				Reason:      types.ReasonMissingFields,
				Status:      http.StatusBadRequest,
				UserMessage: services.MsgMissingFields,
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  services.MsgMissingFields,
		},
		{
			name: "delivery failed",
			decision: types.AdmissionDecision{
				Outcome:     types.OutcomeError,
				Reason:      types.ReasonDeliveryFailed,
				Status:      http.StatusBadGateway,
				UserMessage: services.MsgSendFailed,
			},
			expectedStatus: http.StatusBadGateway,
			expectedError:  services.MsgSendFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admitter := new(MockAdmitter)
			admitter.On("Admit", mock.Anything, mock.Anything).Return(tt.decision)

			w := postContact(setupContactRouter(admitter), validBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.retryAfter, w.Header().Get("Retry-After"))
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

			var resp types.ContactErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedError, resp.Error)
			assert.NotEmpty(t, resp.TraceID)
		})
	}
}

// admissionLimiter counts rate-limit checks and allows up to max.
type admissionLimiter struct {
	calls int
	max   int
}

func (l *admissionLimiter) CheckAndConsume(_ context.Context, _ string) services.RateLimitDecision {
	l.calls++
	if l.calls > l.max {
		return services.RateLimitDecision{Allowed: false, RetryAfter: time.Minute}
	}
	return services.RateLimitDecision{Allowed: true, Remaining: l.max - l.calls}
}

// MockMailDispatcher implements services.MailDispatcher.
type MockMailDispatcher struct {
	mock.Mock
}

func (m *MockMailDispatcher) SendNotification(ctx context.Context, fields types.ContactFields, clientIdentity string) error {
	return m.Called(ctx, fields, clientIdentity).Error(0)
}

func (m *MockMailDispatcher) SendAutoReply(ctx context.Context, recipient string) error {
	return m.Called(ctx, recipient).Error(0)
}

func (m *MockMailDispatcher) AutoReplyEnabled() bool {
	return false
}

func newAdmissionRouter(limiter *admissionLimiter, mailer *MockMailDispatcher) *gin.Engine {
	reg := prometheus.NewRegistry()
	audit := services.NewAuditServiceWithRegistry(nil, config.AuditConfig{}, reg)
	svc := services.NewAdmissionServiceWithRegistry(limiter, classifier.New(classifier.DefaultPolicy()),
		mailer, audit, 1200*time.Millisecond, time.Second, reg)
	return setupContactRouter(svc)
}

func TestSubmitContact_MistypedFieldsReachHoneypot(t *testing.T) {
	limiter := &admissionLimiter{max: 5}
	mailer := new(MockMailDispatcher)
	r := newAdmissionRouter(limiter, mailer)

	w := postContact(r, `{"company":"Acme","email":123}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp types.ContactSuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.TraceID)
	assert.Equal(t, 1, limiter.calls)
	mailer.AssertNotCalled(t, "SendNotification", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitContact_MalformedBody(t *testing.T) {
	for _, body := range []string{`{"email":`, `[]`, `not json`, ``} {
		t.Run(body, func(t *testing.T) {
			limiter := &admissionLimiter{max: 5}
			mailer := new(MockMailDispatcher)

			w := postContact(newAdmissionRouter(limiter, mailer), body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp types.ContactErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, services.MsgInvalidRequest, resp.Error)
			assert.Equal(t, 1, limiter.calls)
			mailer.AssertNotCalled(t, "SendNotification", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitContact_MalformedBodyStillRateLimited(t *testing.T) {
	limiter := &admissionLimiter{max: 5}
	r := newAdmissionRouter(limiter, new(MockMailDispatcher))

	var w *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		w = postContact(r, `{"email":`)
	}

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, 6, limiter.calls)
}

func TestSubmitContact_MalformedBodyFlagged(t *testing.T) {
	admitter := new(MockAdmitter)
	admitter.On("Admit", mock.Anything, mock.MatchedBy(func(sub services.Submission) bool {
		return sub.Malformed && sub.Request == types.SubmissionRequest{}
	})).Return(types.AdmissionDecision{
		Outcome:     types.OutcomeRejectedInvalid,
		Reason:      types.ReasonMalformedBody,
		Status:      http.StatusBadRequest,
		UserMessage: services.MsgInvalidRequest,
	}).Once()

	w := postContact(setupContactRouter(admitter), `[]`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	admitter.AssertExpectations(t)
}

func TestSubmitContact_BodyTooLarge(t *testing.T) {
	admitter := new(MockAdmitter)
	body := `{"message":"` + strings.Repeat("x", ContactBodyLimit) + `"}`

	w := postContact(setupContactRouter(admitter), body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	admitter.AssertNotCalled(t, "Admit", mock.Anything, mock.Anything)
}
