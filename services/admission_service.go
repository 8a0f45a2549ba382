package services

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/Smartconnectcrm/smartconnect-website/internal/classifier"
	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/Smartconnectcrm/smartconnect-website/types"
	"github.com/prometheus/client_golang/prometheus"
)

// Field caps, in runes.
const (
	MaxNameLength    = 120
	MaxEmailLength   = 160
	MaxSubjectLength = 160
	MaxMessageLength = 4000
)

// Messages shown to the visitor on hard failures.
const (
	MsgRateLimited    = "Too many requests. Please try again later."
	MsgInvalidRequest = "Invalid request"
	MsgMissingFields  = "Missing fields"
	MsgInvalidEmail   = "Invalid email"
	MsgSendFailed     = "Send failed"
)

// DefaultDispatchTimeout bounds notification plus auto-reply when no budget is configured.
const DefaultDispatchTimeout = 20 * time.Second

var emailShapeRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// StageKind tells the pipeline whether to continue.
type StageKind int

const (
	StagePass StageKind = iota
	StageReject
	// StageAccept ends the pipeline after delivery.
	StageAccept
)

// StageResult is what every pipeline stage returns. Anything but a pass ends the pipeline;
// UserVisible rejects answer with Status and UserMessage, the rest look like success.
type StageResult struct {
	Kind        StageKind
	Outcome     types.AdmissionOutcome
	Reason      string
	UserVisible bool
	Status      int
	UserMessage string
	RetryAfter  time.Duration
	// Signals carries classifier detail for the decision log.
	Signals []string
}

func pass() StageResult {
	return StageResult{Kind: StagePass}
}

func silentReject(outcome types.AdmissionOutcome, reason string) StageResult {
	return StageResult{Kind: StageReject, Outcome: outcome, Reason: reason, Status: http.StatusOK}
}

func visibleReject(outcome types.AdmissionOutcome, reason string, status int, msg string) StageResult {
	return StageResult{Kind: StageReject, Outcome: outcome, Reason: reason, UserVisible: true, Status: status, UserMessage: msg}
}

// Submission is one inbound contact request with its request-scoped context.
type Submission struct {
	Request        types.SubmissionRequest
	ClientIdentity string
	TraceID        string
	// Malformed marks a body that was not a JSON object. It still counts against the rate limit.
	Malformed bool
}

// AdmissionService runs a submission through the admission stages in order
// and records exactly one audit entry per submission.
type AdmissionService struct {
	limiter     RateLimiterInterface
	classifier  *classifier.Classifier
	mail        MailDispatcher
	audit       *AuditService
	minFillTime time.Duration
	// dispatchTimeout is the shared budget for the notification and the auto-reply.
	dispatchTimeout time.Duration
	now             func() time.Time

	outcomes          *prometheus.CounterVec
	autoReplyFailures prometheus.Counter
}

func NewAdmissionService(limiter RateLimiterInterface, cls *classifier.Classifier, mail MailDispatcher, audit *AuditService, minFillTime, dispatchTimeout time.Duration) *AdmissionService {
	return NewAdmissionServiceWithRegistry(limiter, cls, mail, audit, minFillTime, dispatchTimeout, prometheus.DefaultRegisterer)
}

func NewAdmissionServiceWithRegistry(limiter RateLimiterInterface, cls *classifier.Classifier, mail MailDispatcher, audit *AuditService, minFillTime, dispatchTimeout time.Duration, reg prometheus.Registerer) *AdmissionService {
	if dispatchTimeout <= 0 {
		dispatchTimeout = DefaultDispatchTimeout
	}

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smartconnect_contact_submissions_total",
		Help: "Contact submissions by admission outcome",
	}, []string{"outcome"})
	for _, o := range types.AllOutcomes {
		outcomes.WithLabelValues(string(o))
	}
	autoReplyFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "smartconnect_contact_autoreply_failures_total",
		Help: "Auto-replies that failed after the notification was delivered",
	})
	reg.MustRegister(outcomes)
	reg.MustRegister(autoReplyFailures)

	return &AdmissionService{
		limiter:           limiter,
		classifier:        cls,
		mail:              mail,
		audit:             audit,
		minFillTime:       minFillTime,
		dispatchTimeout:   dispatchTimeout,
		now:               time.Now,
		outcomes:          outcomes,
		autoReplyFailures: autoReplyFailures,
	}
}

// Admit decides and, when admitted, delivers one submission.
func (s *AdmissionService) Admit(ctx context.Context, sub Submission) types.AdmissionDecision {
	fields := NormalizeFields(sub.Request)

	stages := []func() StageResult{
		func() StageResult { return s.checkRateLimit(ctx, sub.ClientIdentity) },
		func() StageResult { return checkWellFormed(sub) },
		func() StageResult { return s.checkHoneypot(sub.Request) },
		func() StageResult { return s.checkTiming(sub.Request.StartedAt) },
		func() StageResult { return validateStructure(fields) },
		func() StageResult { return validateEmailShape(fields.Email) },
		func() StageResult { return s.checkContent(fields) },
		func() StageResult { return s.dispatch(ctx, fields, sub.ClientIdentity) },
	}

	var result StageResult
	for _, stage := range stages {
		if result = stage(); result.Kind != StagePass {
			break
		}
	}

	decision := types.AdmissionDecision{
		Outcome:    result.Outcome,
		Reason:     result.Reason,
		TraceID:    sub.TraceID,
		Status:     result.Status,
		RetryAfter: result.RetryAfter,
	}
	if result.UserVisible {
		decision.UserMessage = result.UserMessage
	}

	s.outcomes.WithLabelValues(string(decision.Outcome)).Inc()
	s.logDecision(sub, decision, result.Signals)
	s.audit.Record(ctx, s.audit.NewEntry(sub.TraceID, sub.ClientIdentity, fields.Email, fields.Subject, decision.Outcome, decision.Reason))
	return decision
}

func (s *AdmissionService) checkRateLimit(ctx context.Context, identity string) StageResult {
	d := s.limiter.CheckAndConsume(ctx, identity)
	if d.Allowed {
		return pass()
	}
	r := visibleReject(types.OutcomeBlockedRateLimit, types.ReasonRateLimited, http.StatusTooManyRequests, MsgRateLimited)
	r.RetryAfter = d.RetryAfter
	return r
}

func checkWellFormed(sub Submission) StageResult {
	if sub.Malformed {
		return visibleReject(types.OutcomeRejectedInvalid, types.ReasonMalformedBody, http.StatusBadRequest, MsgInvalidRequest)
	}
	return pass()
}

func (s *AdmissionService) checkHoneypot(req types.SubmissionRequest) StageResult {
	if strings.TrimSpace(req.Company) != "" {
		return silentReject(types.OutcomeBlockedHoneypot, types.ReasonHoneypot)
	}
	return pass()
}

// checkTiming rejects submissions without a usable start time and those sent
// faster than a person can fill the form. Future start times count as too fast.
func (s *AdmissionService) checkTiming(started types.StartedAt) StageResult {
	if !started.Valid {
		return silentReject(types.OutcomeBlockedTiming, types.ReasonTiming)
	}
	nowMillis := float64(s.now().UnixMilli())
	if nowMillis-started.Millis < float64(s.minFillTime.Milliseconds()) {
		return silentReject(types.OutcomeBlockedTiming, types.ReasonTiming)
	}
	return pass()
}

func validateStructure(f types.ContactFields) StageResult {
	if f.Email == "" || f.Subject == "" || f.Message == "" {
		return visibleReject(types.OutcomeRejectedInvalid, types.ReasonMissingFields, http.StatusBadRequest, MsgMissingFields)
	}
	return pass()
}

func validateEmailShape(email string) StageResult {
	if !emailShapeRe.MatchString(email) {
		return visibleReject(types.OutcomeRejectedInvalid, types.ReasonInvalidEmail, http.StatusBadRequest, MsgInvalidEmail)
	}
	return pass()
}

func (s *AdmissionService) checkContent(f types.ContactFields) StageResult {
	c := s.classifier.Classify(f.Subject, f.Message)

	var r StageResult
	switch {
	case s.classifier.ExceedsURLLimit(c):
		r = silentReject(types.OutcomeBlockedContent, types.ReasonContentURL)
	case c.ContainsBlockedKeyword:
		r = silentReject(types.OutcomeBlockedContent, types.ReasonContentKeyword)
	case c.TooShort:
		r = silentReject(types.OutcomeBlockedTooShort, types.ReasonContentTooShort)
	case c.LooksLikeGibberish:
		r = silentReject(types.OutcomeBlockedContent, types.ReasonContentGibber)
	default:
		return pass()
	}
	r.Signals = c.Signals
	if c.MatchedKeyword != "" {
		r.Signals = append(r.Signals, "keyword:"+c.MatchedKeyword)
	}
	return r
}

func (s *AdmissionService) dispatch(ctx context.Context, f types.ContactFields, identity string) StageResult {
	ctx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()

	if err := s.mail.SendNotification(ctx, f, identity); err != nil {
		return visibleReject(types.OutcomeError, types.ReasonDeliveryFailed, http.StatusBadGateway, MsgSendFailed)
	}

	result := StageResult{Kind: StageAccept, Outcome: types.OutcomeSent, Status: http.StatusOK}
	if s.mail.AutoReplyEnabled() {
		if err := s.mail.SendAutoReply(ctx, f.Email); err != nil {
			// The operator already has the message; the visitor still sees success.
			s.autoReplyFailures.Inc()
			result.Reason = types.ReasonAutoReplyFailed
		}
	}
	return result
}

func (s *AdmissionService) logDecision(sub Submission, d types.AdmissionDecision, signals []string) {
	log := logger.GetLogger()
	kv := []interface{}{
		"traceId", d.TraceID,
		"outcome", d.Outcome,
		"reason", d.Reason,
		"client", sub.ClientIdentity,
		"status", d.Status,
	}
	if len(signals) > 0 {
		kv = append(kv, "signals", signals)
	}
	switch d.Outcome {
	case types.OutcomeSent:
		log.Infow("Contact submission delivered", kv...)
	case types.OutcomeError:
		log.Errorw("Contact submission failed", kv...)
	default:
		log.Warnw("Contact submission rejected", kv...)
	}
}

// NormalizeFields trims, strips control characters and truncates every field.
// Single-line fields lose line breaks entirely; the message keeps newlines and tabs.
func NormalizeFields(req types.SubmissionRequest) types.ContactFields {
	return types.ContactFields{
		Name:    normalizeLine(req.Name, MaxNameLength),
		Email:   normalizeLine(req.Email, MaxEmailLength),
		Subject: normalizeLine(req.Subject, MaxSubjectLength),
		Message: normalizeText(req.Message, MaxMessageLength),
	}
}

func normalizeLine(s string, max int) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\r' || r == '\n' || r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	return truncateRunes(strings.TrimSpace(s), max)
}

func normalizeText(s string, max int) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return '\n'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	return truncateRunes(strings.TrimSpace(s), max)
}
