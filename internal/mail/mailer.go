// Package mail sends account verification emails over SMTP.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

type Mailer struct {
	host     string
	port     string
	username string
	password string
	sender   string
	baseURL  string
}

func New(host, port, username, password, sender, baseURL string) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		sender:   sender,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// VerificationLink builds the link the recipient must open.
func (m *Mailer) VerificationLink(token string) string {
	return m.baseURL + "/verify?token=" + token
}

// SendVerification emails the verification link. Without SMTP credentials
// configured, the link is logged instead so local development still works.
func (m *Mailer) SendVerification(ctx context.Context, email, name, token string) error {
	link := m.VerificationLink(token)

	if m.host == "" || m.username == "" {
		slog.InfoContext(ctx, "SMTP not configured, logging verification link",
			"email", email,
			"link", link)
		return nil
	}

	body := buildMessage(m.sender, email, "Verify Your Email - Expense Tracker", fmt.Sprintf(
		"Welcome to Expense Tracker, %s!\r\n\r\n"+
			"Please verify your email by clicking the link below:\r\n%s\r\n\r\n"+
			"This link will expire in 30 minutes.\r\n\r\n"+
			"If you didn't create an account, please ignore this email.\r\n",
		name, link))

	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, auth, m.sender, []string{email}, body); err != nil {
		return fmt.Errorf("send verification mail to %s: %w", email, err)
	}

	slog.InfoContext(ctx, "Verification mail sent", "email", email)
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
