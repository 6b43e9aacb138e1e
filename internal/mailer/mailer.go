// Package mailer delivers OTP codes out of band. The web process only
// publishes a mail message; cmd/mailer turns it into SMTP.
package mailer

import (
	"context"
	"strings"
	"time"
)

type Mailer interface {
	SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error
}

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type OTPMessage struct {
	Type      string    `json:"type"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

const TypeOTPRequested = "otp_requested"

type KafkaMailer struct {
	Producer Publisher
	Topic    string
}

func (m *KafkaMailer) SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	msg := OTPMessage{
		Type:      TypeOTPRequested,
		Email:     email,
		Code:      code,
		ExpiresAt: expiresAt.UTC(),
	}
	return m.Producer.PublishEvent(ctx, m.Topic, strings.ToLower(email), msg)
}
