// Package otp stores and checks one-time login codes. At most one unverified
// code per email is valid at a time and every code can be used once.
package otp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/research_repository/internal/mailer"
	"github.com/Skotchmaster/research_repository/internal/models"
)

const DefaultTTL = 10 * time.Minute

var ErrDelivery = errors.New("otp delivery failed")

type Issued struct {
	Email     string
	Code      string
	ExpiresAt time.Time
}

type Service struct {
	DB     *gorm.DB
	Mailer mailer.Mailer
	Now    func() time.Time
	TTL    time.Duration
	Rand   io.Reader
}

func New(db *gorm.DB, m mailer.Mailer) *Service {
	return &Service{DB: db, Mailer: m, Now: time.Now, TTL: DefaultTTL}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultTTL
	}
	return s.TTL
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Generate supersedes every pending code for email, stores a new one and
// hands it to the mailer. The row is committed before dispatch, so a
// delivery failure leaves a valid code behind that the next request replaces.
func (s *Service) Generate(ctx context.Context, email string) (*Issued, error) {
	email = normalize(email)
	code, err := NewCode(s.Rand)
	if err != nil {
		return nil, err
	}
	now := s.now()
	row := models.LoginOtp{
		Email:     email,
		CodeHash:  HashCode(code),
		ExpiresAt: now.Add(s.ttl()),
		Verified:  false,
		CreatedAt: now,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ? AND verified = ?", email, false).
			Delete(&models.LoginOtp{}).Error; err != nil {
			return fmt.Errorf("supersede otp: %w", err)
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create otp: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	issued := &Issued{Email: email, Code: code, ExpiresAt: row.ExpiresAt}
	if s.Mailer != nil {
		if err := s.Mailer.SendOTP(ctx, email, code, row.ExpiresAt); err != nil {
			return issued, fmt.Errorf("%w: %v", ErrDelivery, err)
		}
	}
	return issued, nil
}

// Verify consumes a matching unverified code that has not expired. The
// match and the consume are one UPDATE, so two concurrent calls with the
// same code cannot both succeed.
func (s *Service) Verify(ctx context.Context, email, code string) (bool, error) {
	if !WellFormed(code) {
		return false, nil
	}
	res := s.DB.WithContext(ctx).
		Model(&models.LoginOtp{}).
		Where("email = ? AND code_hash = ? AND verified = ? AND expires_at >= ?",
			normalize(email), HashCode(code), false, s.now()).
		Update("verified", true)
	if res.Error != nil {
		return false, fmt.Errorf("verify otp: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Sweep removes expired and consumed codes.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).
		Where("verified = ? OR expires_at < ?", true, s.now()).
		Delete(&models.LoginOtp{})
	if res.Error != nil {
		return 0, fmt.Errorf("sweep otp: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Service) RunSweeper(ctx context.Context, every time.Duration, l *slog.Logger) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				l.Warn("otp_sweep_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("otp_sweep_done", "deleted", n)
			}
		}
	}
}
