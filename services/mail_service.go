package services

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/Smartconnectcrm/smartconnect-website/config"
	"github.com/Smartconnectcrm/smartconnect-website/internal/mailer"
	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/Smartconnectcrm/smartconnect-website/types"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	autoReplySubject = "Eingangsbestätigung: Ihre Anfrage"
	autoReplyText    = `Vielen Dank für Ihre Nachricht.

Wir haben Ihre Anfrage erhalten und melden uns zeitnah zurück.

SmartConnect CRM UG (haftungsbeschränkt)
Düsseldorf, Deutschland
E-Mail: admin@smartclientcrm.com
Telefon: +49 211 87973999233
`
)

// MailDispatcher sends the operator notification and the optional visitor auto-reply.
type MailDispatcher interface {
	SendNotification(ctx context.Context, fields types.ContactFields, clientIdentity string) error
	SendAutoReply(ctx context.Context, recipient string) error
	AutoReplyEnabled() bool
}

type EmailMetrics struct {
	sendLatency prometheus.Histogram
	errorCount  prometheus.Counter
	sentCount   prometheus.Counter
}

// MailService composes contact mails. The sender address is always the
// configured one; the visitor only ever appears as Reply-To or recipient.
type MailService struct {
	config  *config.MailConfig
	sender  mailer.Sender
	metrics *EmailMetrics
}

// NewMailSender picks the transport for the configured provider.
func NewMailSender(cfg *config.MailConfig) mailer.Sender {
	if cfg.Provider == config.MailProviderResend {
		return mailer.NewResendSender(cfg.ResendAPIKey)
	}
	return mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:           cfg.SMTPHost,
		Port:           cfg.SMTPPort,
		Username:       cfg.SMTPUser,
		Password:       cfg.SMTPPass,
		ImplicitTLS:    cfg.SMTPImplicitTLS,
		ConnectTimeout: cfg.ConnectTimeout,
		SendTimeout:    cfg.SendTimeout,
	})
}

func NewMailService(cfg *config.MailConfig, sender mailer.Sender) *MailService {
	return NewMailServiceWithRegistry(cfg, sender, prometheus.DefaultRegisterer)
}

func NewMailServiceWithRegistry(cfg *config.MailConfig, sender mailer.Sender, reg prometheus.Registerer) *MailService {
	logger.GetLogger().Infow("Initializing mail service",
		"provider", cfg.Provider,
		"from", logger.MaskEmail(cfg.FromAddress),
		"to", logger.MaskEmail(cfg.ToAddress),
		"autoreply", cfg.AutoReplyEnabled)

	metrics := &EmailMetrics{
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "smartconnect_email_send_duration_seconds",
			Help:    "Time taken to send emails",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20},
		}),
		errorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartconnect_email_errors_total",
			Help: "Total number of email sending errors",
		}),
		sentCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartconnect_emails_sent_total",
			Help: "Total number of emails sent",
		}),
	}

	reg.MustRegister(metrics.sendLatency)
	reg.MustRegister(metrics.errorCount)
	reg.MustRegister(metrics.sentCount)

	return &MailService{
		config:  cfg,
		sender:  sender,
		metrics: metrics,
	}
}

func (s *MailService) AutoReplyEnabled() bool {
	return s.config.AutoReplyEnabled
}

// SendNotification mails the submission to the operator inbox.
func (s *MailService) SendNotification(ctx context.Context, fields types.ContactFields, clientIdentity string) error {
	name := fields.Name
	if name == "" {
		name = "-"
	}
	msg := mailer.Message{
		From:    s.fromHeader(s.config.FromName),
		To:      s.config.ToAddress,
		ReplyTo: fields.Email,
		Subject: s.config.SubjectPrefix + " " + fields.Subject,
		Text: fmt.Sprintf("Name: %s\nE-Mail: %s\nIP: %s\n\nNachricht:\n%s\n",
			name, fields.Email, clientIdentity, fields.Message),
	}
	return s.send(ctx, "notification", msg)
}

// SendAutoReply confirms receipt to the visitor. It is a no-op when disabled.
func (s *MailService) SendAutoReply(ctx context.Context, recipient string) error {
	if !s.config.AutoReplyEnabled {
		return nil
	}
	msg := mailer.Message{
		From:    s.fromHeader(s.config.AutoReplyName),
		To:      recipient,
		Subject: autoReplySubject,
		Text:    autoReplyText,
	}
	return s.send(ctx, "autoreply", msg)
}

func (s *MailService) fromHeader(name string) string {
	return (&mail.Address{Name: name, Address: s.config.FromAddress}).String()
}

func (s *MailService) send(ctx context.Context, kind string, msg mailer.Message) error {
	startTime := time.Now()
	log := logger.GetLogger()
	defer func() {
		s.metrics.sendLatency.Observe(time.Since(startTime).Seconds())
	}()

	if s.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.SendTimeout)
		defer cancel()
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to send email",
			"error", err,
			"kind", kind,
			"to", logger.MaskEmail(msg.To))
		return fmt.Errorf("email send failed: %w", err)
	}

	s.metrics.sentCount.Inc()
	log.Infow("Email sent successfully",
		"kind", kind,
		"to", logger.MaskEmail(msg.To))
	return nil
}
