// Package mail sends notification emails over SMTP.
package mail

import (
	"bytes"
	"context"
	"fincra-wisdom/internal/config"
	"fincra-wisdom/pkg/log"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
)

// Message is one email. Both HTML and Text bodies are sent as multipart/alternative.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// sendFunc matches smtp.SendMail so tests can capture outgoing mail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender sends mail through an SMTP relay. An unconfigured sender logs and drops mail.
type SMTPSender struct {
	cfg    config.MailConfig
	server string
	auth   smtp.Auth
	send   sendFunc
}

// NewSMTPSender creates an SMTPSender from cfg.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPSender{
		cfg:    cfg,
		server: cfg.Host + ":" + cfg.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured reports whether a relay host, port and from address are set.
func (s *SMTPSender) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Port != "" && s.cfg.From != ""
}

// Send delivers msg, giving up when ctx is done. smtp.SendMail has no context support,
// so an abandoned send keeps running in the background until the relay answers.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if !s.IsConfigured() {
		log.Infow("mail not configured, skipping email", "to", msg.To, "subject", msg.Subject)
		return nil
	}

	raw := s.compose(msg)
	done := make(chan error, 1)
	go func() {
		done <- s.send(s.server, s.auth, s.cfg.From, msg.To, raw)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail to %v: %w", msg.To, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send mail to %v: %w", msg.To, ctx.Err())
	}
}

const boundary = "fincra-wisdom-boundary"

func (s *SMTPSender) compose(msg Message) []byte {
	from := headerValue(s.cfg.From)
	if name := headerValue(s.cfg.FromName); name != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", name), from)
	}
	to := make([]string, len(msg.To))
	for i, addr := range msg.To {
		to[i] = headerValue(addr)
	}
	text := msg.Text
	if text == "" {
		text = "Please view this email in an HTML-capable email client."
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(msg.Subject)))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", text)

	if msg.HTML != "" {
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		fmt.Fprintf(&buf, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
		fmt.Fprintf(&buf, "%s\r\n\r\n", msg.HTML)
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes()
}

// headerValue folds CR and LF into spaces so a value can never start a new header line.
func headerValue(v string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, v))
}
