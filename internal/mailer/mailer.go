// Package mailer delivers plain-text messages over SMTP or the Resend API.
package mailer

import (
	"context"
	"errors"
	"strings"
)

// Message is one outbound plain-text mail. From, To and ReplyTo are RFC 5322
// addresses, optionally with a display name.
type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Text    string
}

// Sender delivers a Message. Implementations honour ctx cancellation.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var ErrNoRecipient = errors.New("mailer: message has no recipient")

var headerReplacer = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// SanitizeHeader removes line breaks so a value cannot start a new header line.
func SanitizeHeader(v string) string {
	return strings.TrimSpace(headerReplacer.Replace(v))
}

func (m Message) sanitized() Message {
	return Message{
		From:    SanitizeHeader(m.From),
		To:      SanitizeHeader(m.To),
		ReplyTo: SanitizeHeader(m.ReplyTo),
		Subject: SanitizeHeader(m.Subject),
		Text:    m.Text,
	}
}
