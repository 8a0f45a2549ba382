package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/jordan-wright/email"
)

// SMTPConfig describes the relay. ImplicitTLS selects SMTPS (usually port 465);
// otherwise STARTTLS is used whenever the server offers it.
type SMTPConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	ImplicitTLS    bool
	ConnectTimeout time.Duration
	SendTimeout    time.Duration
	// TLSConfig overrides the default client TLS settings. Tests only.
	TLSConfig *tls.Config
}

// ErrAuthUnavailable is returned when credentials are configured but the relay
// does not advertise AUTH. Mail is never sent unauthenticated in that case.
var ErrAuthUnavailable = errors.New("smtp server does not offer AUTH")

type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 12 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 20 * time.Second
	}
	return &SMTPSender{cfg: cfg}
}

// Compose renders msg as an RFC 5322 message.
func Compose(msg Message) ([]byte, error) {
	msg = msg.sanitized()
	if msg.To == "" {
		return nil, ErrNoRecipient
	}

	e := email.NewEmail()
	e.From = msg.From
	e.To = []string{msg.To}
	if msg.ReplyTo != "" {
		e.ReplyTo = []string{msg.ReplyTo}
	}
	e.Subject = msg.Subject
	e.Text = []byte(msg.Text)
	return e.Bytes()
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	raw, err := Compose(msg)
	if err != nil {
		return err
	}
	from, err := mail.ParseAddress(SanitizeHeader(msg.From))
	if err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	to, err := mail.ParseAddress(SanitizeHeader(msg.To))
	if err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	// The whole exchange shares the send deadline; cancellation closes the socket.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp greeting: %w", err)
	}
	defer c.Close()

	if !s.cfg.ImplicitTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(s.tlsConfig()); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if s.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return ErrAuthUnavailable
		}
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(from.Address); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(to.Address); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp end data: %w", err)
	}
	if err := c.Quit(); err != nil {
		return fmt.Errorf("smtp quit: %w", err)
	}
	return nil
}

func (s *SMTPSender) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	d := &net.Dialer{Timeout: s.cfg.ConnectTimeout}
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("smtp connect %s: %w", addr, err)
	}
	if !s.cfg.ImplicitTLS {
		return conn, nil
	}

	tlsConn := tls.Client(conn, s.tlsConfig())
	if err := tlsConn.HandshakeContext(dialCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp tls handshake: %w", err)
	}
	return tlsConn, nil
}

func (s *SMTPSender) tlsConfig() *tls.Config {
	if s.cfg.TLSConfig != nil {
		return s.cfg.TLSConfig.Clone()
	}
	return &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
}
