package email

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"codeberg.org/restage/server/internal/config"
	"codeberg.org/restage/server/internal/logger"
)

// delivers transactional mail
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// sends mail through an SMTP relay
type SMTPSender struct {
	host     string
	port     string
	user     string
	password string
	from     string
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// writes mail to the log instead of sending it; used when SMTP is not configured
type LogSender struct{}

// returns an SMTP sender when a relay is configured, otherwise a LogSender
func NewSender(cfg config.SMTPConfig) Sender {
	if cfg.Host == "" || cfg.From == "" {
		logger.Warn("SMTP not configured, verification emails will only be logged")
		return LogSender{}
	}

	return &SMTPSender{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.From,
		sendMail: smtp.SendMail,
	}
}

func (s *SMTPSender) Send(_ context.Context, to, subject, htmlBody string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("invalid header value")
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"utf-8\"\r\n"+
			"\r\n%s\r\n",
		s.from, to, subject, htmlBody,
	))

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}

	if err := s.sendMail(s.host+":"+s.port, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (LogSender) Send(ctx context.Context, to, subject, _ string) error {
	logger.FromContext(ctx).Info("email not sent, SMTP disabled", "to", to, "subject", subject)
	return nil
}

// subject and body of the email verification message
func VerificationEmail(name, code string) (string, string) {
	if name == "" {
		name = "there"
	}

	body := fmt.Sprintf(
		"<p>Hi %s,</p>"+
			"<p>Your restage verification code is <strong>%s</strong>.</p>"+
			"<p>The code expires in 24 hours.</p>",
		html.EscapeString(name), code,
	)

	return "Verify your restage account", body
}
