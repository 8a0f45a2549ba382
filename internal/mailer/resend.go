package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// EmailsAPI is the part of the Resend client used here.
type EmailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendSender struct {
	emails EmailsAPI
}

func NewResendSender(apiKey string) *ResendSender {
	return NewResendSenderWithAPI(resend.NewClient(apiKey).Emails)
}

func NewResendSenderWithAPI(emails EmailsAPI) *ResendSender {
	return &ResendSender{emails: emails}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	msg = msg.sanitized()
	if msg.To == "" {
		return ErrNoRecipient
	}
	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		Text:    msg.Text,
	}
	if _, err := s.emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}
