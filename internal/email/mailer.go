package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"

	"resumegen-backend/internal/shared/telemetry"
)

// Mailer sends messages. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers mail over SMTP with STARTTLS.
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// NewSMTPMailer constructs an SMTPMailer.
func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	if port == "" {
		port = "587"
	}
	return &SMTPMailer{Host: host, Port: port, Username: username, Password: password, From: from}
}

// Configured reports whether delivery settings are present.
func (m *SMTPMailer) Configured() bool {
	return m.Host != "" && m.From != ""
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if !m.Configured() {
		return fmt.Errorf("smtp mailer is not configured")
	}
	if msg.From == "" {
		msg.From = m.From
	}

	payload, err := msg.Build()
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.Host, m.Port)

	// net/smtp has no context support; dial with one so cancellation at
	// least covers connection setup.
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.Host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if m.Username != "" {
		auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(msg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	if err := client.Quit(); err != nil {
		telemetry.Warn("email.quit_failed", map[string]any{"error": err.Error()})
	}
	return nil
}

var _ Mailer = (*SMTPMailer)(nil)
