package email

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"

	"changemgmt/internal/config"

	"github.com/mailgun/mailgun-go/v4"
)

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a message or returns why it could not.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var ErrNotConfigured = errors.New("email delivery is not configured")

// NewSender picks the delivery backend from configuration. Mailgun wins over
// SMTP when both are set. It returns ErrNotConfigured when neither is.
func NewSender(c *config.Configuration) (Sender, error) {
	switch {
	case c.Mailgun.Configured():
		from := c.SMTP.SenderEmail
		if from == "" {
			from = "no-reply@" + c.Mailgun.Domain
		}
		return NewMailgunSender(c.Mailgun.Domain, c.Mailgun.APIKey, formatAddress(c.SMTP.SenderName, from)), nil
	case c.SMTP.Configured():
		return NewSMTPSender(c.SMTP), nil
	}
	return nil, ErrNotConfigured
}

// SMTPSender delivers through an SMTP relay, upgrading with STARTTLS when the
// server offers it.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from mail.Address

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(opts config.SMTPOptions) *SMTPSender {
	port := opts.Port
	if port == 0 {
		port = 587
	}
	username := opts.Username
	if username == "" {
		username = opts.SenderEmail
	}
	var auth smtp.Auth
	if opts.Password != "" {
		auth = smtp.PlainAuth("", username, opts.Password, opts.Server)
	}
	return &SMTPSender{
		addr:     net.JoinHostPort(opts.Server, strconv.Itoa(port)),
		auth:     auth,
		from:     mail.Address{Name: opts.SenderName, Address: opts.SenderEmail},
		sendMail: smtp.SendMail,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("parse recipient: %w", err)
	}
	body := buildMIME(s.from, *to, msg)
	if err := s.sendMail(s.addr, s.auth, s.from.Address, []string{to.Address}, body); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to.Address, err)
	}
	return nil
}

func buildMIME(from, to mail.Address, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from.String() + "\r\n")
	b.WriteString("To: " + to.String() + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}

// MailgunSender delivers through the Mailgun HTTP API.
type MailgunSender struct {
	mg   mailgun.Mailgun
	from string
}

func NewMailgunSender(domain, apiKey, from string) *MailgunSender {
	return &MailgunSender{mg: mailgun.NewMailgun(domain, apiKey), from: from}
}

func (s *MailgunSender) Send(ctx context.Context, msg Message) error {
	m := s.mg.NewMessage(s.from, msg.Subject, "", msg.To)
	m.SetHtml(msg.HTML)
	if _, _, err := s.mg.Send(ctx, m); err != nil {
		return fmt.Errorf("mailgun send to %s: %w", msg.To, err)
	}
	return nil
}

func formatAddress(name, address string) string {
	return (&mail.Address{Name: name, Address: address}).String()
}
