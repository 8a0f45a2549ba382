package types

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// AdmissionOutcome is the terminal state of one contact submission.
type AdmissionOutcome string

const (
	OutcomeSent             AdmissionOutcome = "sent"
	OutcomeBlockedRateLimit AdmissionOutcome = "blocked-rate-limit"
	OutcomeBlockedHoneypot  AdmissionOutcome = "blocked-honeypot"
	OutcomeBlockedTiming    AdmissionOutcome = "blocked-timing"
	OutcomeBlockedContent   AdmissionOutcome = "blocked-content"
	OutcomeBlockedTooShort  AdmissionOutcome = "blocked-too-short"
	OutcomeRejectedInvalid  AdmissionOutcome = "rejected-invalid"
	OutcomeError            AdmissionOutcome = "error"
)

// AllOutcomes lists every outcome, used to pre-register metric labels.
var AllOutcomes = []AdmissionOutcome{
	OutcomeSent,
	OutcomeBlockedRateLimit,
	OutcomeBlockedHoneypot,
	OutcomeBlockedTiming,
	OutcomeBlockedContent,
	OutcomeBlockedTooShort,
	OutcomeRejectedInvalid,
	OutcomeError,
}

// Machine-readable reasons. Internal only, never sent to the visitor.
const (
	ReasonRateLimited     = "rate_limited"
	ReasonHoneypot        = "honeypot"
	ReasonTiming          = "timing"
	ReasonMalformedBody   = "malformed_body"
	ReasonMissingFields   = "missing_fields"
	ReasonInvalidEmail    = "invalid_email"
	ReasonContentURL      = "content:url"
	ReasonContentKeyword  = "content:keyword"
	ReasonContentTooShort = "content:too_short"
	ReasonContentGibber   = "content:gibberish"
	ReasonDeliveryFailed  = "delivery_failed"
	ReasonAutoReplyFailed = "autoreply_failed"
)

// StartedAt accepts a JSON number or a numeric string. Anything else leaves Valid false.
type StartedAt struct {
	Millis float64
	Valid  bool
}

func (s *StartedAt) UnmarshalJSON(data []byte) error {
	*s = StartedAt{}
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return nil
	}

	var v float64
	if strings.HasPrefix(raw, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return nil
		}
		v = parsed
	} else if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	s.Millis = v
	s.Valid = true
	return nil
}

func (s StartedAt) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Millis)
}

// SubmissionRequest is the JSON body of POST /api/contact.
// Company is the honeypot: a hidden field humans leave empty.
type SubmissionRequest struct {
	Name      string    `json:"name" example:"Erika Musterfrau"`
	Email     string    `json:"email" example:"erika@example.de"`
	Subject   string    `json:"subject" example:"Anfrage CRM-Einführung"`
	Message   string    `json:"message" example:"Wir interessieren uns für eine Demo."`
	Company   string    `json:"company"`
	StartedAt StartedAt `json:"startedAt" swaggertype:"number" example:"1718000000000"`
}

// UnmarshalJSON decodes field by field without type errors, so a mistyped field
// never keeps a submission from reaching the rate limiter or the honeypot.
// Scalars become their text form; null, arrays and objects become empty, except
// for the honeypot, where any non-null value counts as filled.
// Only a body that is not a JSON object fails.
func (r *SubmissionRequest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = SubmissionRequest{}
	for key, raw := range fields {
		switch strings.ToLower(key) {
		case "name":
			r.Name = coerceString(raw, false)
		case "email":
			r.Email = coerceString(raw, false)
		case "subject":
			r.Subject = coerceString(raw, false)
		case "message":
			r.Message = coerceString(raw, false)
		case "company":
			r.Company = coerceString(raw, true)
		case "startedat":
			_ = r.StartedAt.UnmarshalJSON(raw)
		}
	}
	return nil
}

func coerceString(raw json.RawMessage, keepComposite bool) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ""
		}
		return s
	case '[', '{':
		if !keepComposite {
			return ""
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return ""
		}
		return buf.String()
	case 'n':
		return ""
	default:
		// numbers and booleans keep their literal text
		return string(trimmed)
	}
}

// ContactFields is a submission after normalization, ready for mail composition.
type ContactFields struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// AdmissionDecision is the result of running one submission through the pipeline.
type AdmissionDecision struct {
	Outcome AdmissionOutcome
	Reason  string
	TraceID string
	// Status is the HTTP status to answer with. 200 for silent accepts and real success.
	Status int
	// UserMessage is the error text shown to the visitor. Empty when the visitor sees success.
	UserMessage string
	// RetryAfter is set for rate-limit rejections.
	RetryAfter time.Duration
}

// VisibleSuccess reports whether the visitor is told the submission went through.
func (d AdmissionDecision) VisibleSuccess() bool {
	return d.UserMessage == ""
}

// AuditLogEntry is the privacy-reduced record of one admission decision.
// It never contains the raw email address or the message body.
type AuditLogEntry struct {
	Timestamp      time.Time        `json:"t"`
	TraceID        string           `json:"traceId"`
	ClientIdentity string           `json:"ip"`
	EmailHash      string           `json:"emailHash,omitempty"`
	Subject        string           `json:"subject,omitempty"`
	Outcome        AdmissionOutcome `json:"action"`
	Reason         string           `json:"reason,omitempty"`
}

// ContactSuccessResponse is returned for real and silent successes alike.
type ContactSuccessResponse struct {
	Success bool   `json:"success" example:"true"`
	TraceID string `json:"traceId" example:"6f1c1d2e-3a4b-4c5d-8e9f-0a1b2c3d4e5f"`
}

// ContactErrorResponse is the body of every hard failure.
type ContactErrorResponse struct {
	Error   string `json:"error" example:"Missing fields"`
	TraceID string `json:"traceId,omitempty" example:"6f1c1d2e-3a4b-4c5d-8e9f-0a1b2c3d4e5f"`
}
