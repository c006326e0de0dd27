// Package transport delivers finished MIME byte sequences over SMTP.
// It accepts what compose produces and adds nothing of its own.
package transport

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"
)

const dialTimeout = 30 * time.Second

// Config holds the SMTP server settings for one account. TLS selects
// implicit TLS; otherwise the connection upgrades via STARTTLS.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
}

// Send delivers raw message bytes from the sender to every recipient.
func Send(cfg Config, from string, recipients []string, raw []byte) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}
	addr := cfg.Host + ":" + cfg.Port
	if cfg.TLS {
		return sendWithTLS(addr, cfg, from, recipients, raw)
	}
	return sendWithStartTLS(addr, cfg, from, recipients, raw)
}

func sendWithTLS(addr string, cfg Config, from string, recipients []string, raw []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
	if err != nil {
		return fmt.Errorf("TLS dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}
	return deliver(client, from, recipients, raw)
}

func sendWithStartTLS(addr string, cfg Config, from string, recipients []string, raw []byte) error {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
		return fmt.Errorf("SMTP STARTTLS: %w", err)
	}

	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}
	return deliver(client, from, recipients, raw)
}

// deliver runs the MAIL/RCPT/DATA sequence on an authenticated client.
func deliver(client *smtp.Client, from string, recipients []string, raw []byte) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("SMTP RCPT TO %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := writer.Write(raw); err != nil {
		return fmt.Errorf("writing message body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing message body: %w", err)
	}
	return client.Quit()
}
