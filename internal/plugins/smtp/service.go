// Package smtp sends transactional email (password reset links) through
// an SMTP relay configured from the environment.
package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	gosmtp "net/smtp"
	"strings"
	"time"

	"github.com/keyxmakerx/moodwise/internal/config"
)

// ErrNotConfigured is returned by SendMail when no relay is configured.
var ErrNotConfigured = errors.New("smtp: not configured")

const dialTimeout = 10 * time.Second

// MailService is the interface other plugins use to send email.
type MailService interface {
	SendMail(ctx context.Context, to []string, subject, body string) error
	IsConfigured(ctx context.Context) bool
}

// smtpService implements MailService from static configuration.
type smtpService struct {
	cfg config.SMTPConfig
	now func() time.Time
}

// NewSMTPService creates a mail service for the given relay settings.
func NewSMTPService(cfg config.SMTPConfig) MailService {
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if cfg.Encryption == "" {
		cfg.Encryption = "starttls"
	}
	return &smtpService{cfg: cfg, now: time.Now}
}

// IsConfigured returns true if a host and sender address are set.
func (s *smtpService) IsConfigured(ctx context.Context) bool {
	return s.cfg.Enabled()
}

// SendMail sends a plain-text email. The context bounds the connection
// setup; once the SMTP conversation starts it runs to completion.
func (s *smtpService) SendMail(ctx context.Context, to []string, subject, body string) error {
	if !s.cfg.Enabled() {
		return ErrNotConfigured
	}
	if len(to) == 0 {
		return errors.New("smtp: no recipients")
	}

	from := mail.Address{Name: s.cfg.FromName, Address: s.cfg.FromAddress}
	msg := buildMessage(from, to, subject, body, s.now())
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))

	switch s.cfg.Encryption {
	case "ssl":
		return s.sendSSL(ctx, addr, from.Address, to, msg)
	case "none":
		return s.sendPlain(ctx, addr, from.Address, to, msg)
	default: // "starttls"
		return s.sendStartTLS(ctx, addr, from.Address, to, msg)
	}
}

// buildMessage renders an RFC 5322 message. CR and LF are removed from
// header values so user data cannot inject headers.
func buildMessage(from mail.Address, to []string, subject, body string, now time.Time) string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from.String())
	fmt.Fprintf(&msg, "To: %s\r\n", headerValue(strings.Join(to, ", ")))
	fmt.Fprintf(&msg, "Subject: %s\r\n", headerValue(subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", now.UTC().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return msg.String()
}

func headerValue(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}

// dial opens a TCP connection honoring ctx.
func (s *smtpService) dial(ctx context.Context, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return conn, nil
}

func (s *smtpService) tlsConfig() *tls.Config {
	return &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
}

// sendStartTLS sends email using STARTTLS (port 587 typical).
func (s *smtpService) sendStartTLS(ctx context.Context, addr, from string, to []string, msg string) error {
	conn, err := s.dial(ctx, addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(s.tlsConfig()); err != nil {
		return fmt.Errorf("starting TLS: %w", err)
	}
	return s.deliver(client, from, to, msg)
}

// sendSSL sends email using implicit TLS (port 465 typical).
func (s *smtpService) sendSSL(ctx context.Context, addr, from string, to []string, msg string) error {
	d := &tls.Dialer{NetDialer: &net.Dialer{Timeout: dialTimeout}, Config: s.tlsConfig()}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s (SSL): %w", addr, err)
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	return s.deliver(client, from, to, msg)
}

// sendPlain sends email without encryption. Only suitable for a relay on
// a trusted network; net/smtp refuses PLAIN auth over it unless the host
// is localhost.
func (s *smtpService) sendPlain(ctx context.Context, addr, from string, to []string, msg string) error {
	conn, err := s.dial(ctx, addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	return s.deliver(client, from, to, msg)
}

// deliver authenticates when credentials are set, then runs MAIL FROM,
// RCPT TO and DATA.
func (s *smtpService) deliver(client *gosmtp.Client, from string, to []string, msg string) error {
	if s.cfg.Username != "" {
		auth := gosmtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", recipient, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}
	return client.Quit()
}
