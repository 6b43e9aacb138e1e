package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"text/template"
	"time"
)

var otpTemplate = template.Must(template.New("otp").Parse(
	"From: {{.From}}\r\n" +
		"To: {{.To}}\r\n" +
		"Subject: Your login code\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		"Your one-time login code is {{.Code}}.\r\n" +
		"It expires at {{.Expires}} UTC. If you did not request it, ignore this message.\r\n",
))

type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPSender struct {
	Addr     string
	Username string
	Password string
	From     string
	Send     SendFunc
}

func RenderOTP(from, to, code string, expiresAt time.Time) ([]byte, error) {
	var buf bytes.Buffer
	err := otpTemplate.Execute(&buf, map[string]string{
		"From":    from,
		"To":      to,
		"Code":    code,
		"Expires": expiresAt.UTC().Format("2006-01-02 15:04"),
	})
	if err != nil {
		return nil, fmt.Errorf("render otp mail: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *SMTPSender) SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := RenderOTP(s.From, email, code, expiresAt)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if s.Username != "" {
		host, _, err := net.SplitHostPort(s.Addr)
		if err != nil {
			return fmt.Errorf("smtp addr: %w", err)
		}
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}

	send := s.Send
	if send == nil {
		send = smtp.SendMail
	}
	if err := send(s.Addr, auth, s.From, []string{email}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
