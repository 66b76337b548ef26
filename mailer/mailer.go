package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	otpSubject     = "Crave Events verification code"
	resetSubject   = "Reset your Crave Events password"
	welcomeSubject = "Welcome to Crave Events"
)

func otpBody(code string) string {
	return "Welcome to Crave Events! To complete your registration, use the verification code below:\n\n" +
		code + "\n\nThe code expires in a few minutes. If you did not request it, ignore this mail."
}

func resetBody(link string) string {
	return "We received a request to reset your password. Open the link below to choose a new one:\n\n" +
		link + "\n\nThe link works once and expires soon."
}

func welcomeBody(name string) string {
	if strings.TrimSpace(name) == "" {
		name = "User"
	}
	return fmt.Sprintf("Welcome to Crave Events, %s!\n\nYour account is ready. Start exploring events near you.", name)
}

// SMTPConfig addresses the relay. Port defaults to 587.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPMailer struct {
	cfg  SMTPConfig
	auth smtp.Auth
	send sendFunc
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("smtp host and from address required")
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	m := &SMTPMailer{cfg: cfg, send: smtp.SendMail}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return m, nil
}

func (m *SMTPMailer) SendOTP(ctx context.Context, to, code string) error {
	return m.deliver(ctx, to, otpSubject, otpBody(code))
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	return m.deliver(ctx, to, resetSubject, resetBody(link))
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, to, name string) error {
	return m.deliver(ctx, to, welcomeSubject, welcomeBody(name))
}

// deliver returns when the relay answers, the timeout passes or ctx ends.
// net/smtp has no context support, so an abandoned send finishes in the
// background.
func (m *SMTPMailer) deliver(ctx context.Context, to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") {
		return errors.New("invalid recipient")
	}

	msg := buildMessage(m.cfg.From, to, subject, body)
	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, m.auth, m.cfg.From, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// LogMailer logs every mail at Info instead of sending it.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger.Named("mailer")}
}

func (m *LogMailer) SendOTP(_ context.Context, to, code string) error {
	m.logger.Info("mail not sent", zap.String("to", to), zap.String("subject", otpSubject), zap.String("code", code))
	return nil
}

func (m *LogMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.logger.Info("mail not sent", zap.String("to", to), zap.String("subject", resetSubject), zap.String("link", link))
	return nil
}

func (m *LogMailer) SendWelcome(_ context.Context, to, name string) error {
	m.logger.Info("mail not sent", zap.String("to", to), zap.String("subject", welcomeSubject), zap.String("name", name))
	return nil
}
