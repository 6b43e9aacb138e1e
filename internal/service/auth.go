package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Skotchmaster/research_repository/internal/hash"
	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/otp"
	"github.com/Skotchmaster/research_repository/internal/ratelimit"
	"github.com/Skotchmaster/research_repository/internal/repo"
	"github.com/Skotchmaster/research_repository/internal/session"
)

const (
	MsgOTPSent         = "OTP code has been sent to your email."
	MsgOTPRequestLimit = "Too many OTP requests. Please try again in %d seconds."
	MsgNoAccount       = "No account found with this email address."
	MsgInactive        = "Your account is inactive. Please contact support."
	MsgOTPDelivery     = "Failed to send OTP. Please try again later."
	MsgOTPVerifyLimit  = "Too many verification attempts. Please try again in %d seconds."
	MsgOTPInvalid      = "Invalid or expired OTP code."
	MsgUserNotFound    = "User not found."
	MsgLoginLimit      = "Too many login attempts. Please try again in %d seconds."
	MsgBadCredentials  = "These credentials do not match our records."
	MsgOTPLength       = "The otp field must be 6 characters."
)

type AuthService struct {
	Repo     *repo.GormRepo
	OTP      *otp.Service
	Limiter  *ratelimit.Limiter
	Sessions *session.Manager
	Events   EventPublisher
}

type Login struct {
	User    *models.User
	Session *session.Issued
}

func (s *AuthService) throttled(ctx context.Context, key string, max int, field, msg string) error {
	too, err := s.Limiter.TooManyAttempts(ctx, key, max)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if !too {
		return nil
	}
	secs, err := s.Limiter.AvailableIn(ctx, key)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return &ThrottleError{
		Field:      field,
		Message:    fmt.Sprintf(msg, secs),
		RetryAfter: time.Duration(secs) * time.Second,
	}
}

func validateEmailField(email string) error {
	if email == "" {
		return &FieldError{Field: "email", Message: fmt.Sprintf(msgRequired, "email")}
	}
	if !validEmail(email) {
		return &FieldError{Field: "email", Message: fmt.Sprintf(msgEmail, "email")}
	}
	return nil
}

// RequestOTP checks the request limiter before counting the attempt, so a
// rejected request never extends the lockout. Whether the address is
// registered is disclosed here on purpose.
func (s *AuthService) RequestOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validateEmailField(email); err != nil {
		return err
	}

	key := ratelimit.RequestKey(email)
	if err := s.throttled(ctx, key, ratelimit.OTPRequestMaxAttempts, "email", MsgOTPRequestLimit); err != nil {
		return err
	}
	if _, err := s.Limiter.Hit(ctx, key, ratelimit.Window); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return &FieldError{Field: "email", Message: MsgNoAccount}
		}
		return err
	}
	if !user.IsActive() {
		return &FieldError{Field: "email", Message: MsgInactive}
	}

	if _, err := s.OTP.Generate(ctx, email); err != nil {
		if errors.Is(err, otp.ErrDelivery) {
			return &FieldError{Field: "email", Message: MsgOTPDelivery, Cause: fmt.Errorf("%w: %v", ErrDelivery, err)}
		}
		return err
	}

	publish(ctx, s.Events, TopicUserEvents, user.ID, map[string]any{
		"type":   "otp_requested",
		"userID": user.ID,
	})
	return nil
}

// VerifyOTP consumes the code and opens a session under a fresh id.
// previousToken is whatever session token the client already presented.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string, remember bool, previousToken string) (*Login, error) {
	email = normalizeEmail(email)
	if err := validateEmailField(email); err != nil {
		return nil, err
	}
	if len(code) != otp.Digits {
		return nil, &FieldError{Field: "otp", Message: MsgOTPLength}
	}

	key := ratelimit.VerifyKey(email)
	if err := s.throttled(ctx, key, ratelimit.OTPVerifyMaxAttempts, "otp", MsgOTPVerifyLimit); err != nil {
		return nil, err
	}
	if _, err := s.Limiter.Hit(ctx, key, ratelimit.Window); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	ok, err := s.OTP.Verify(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &FieldError{Field: "otp", Message: MsgOTPInvalid}
	}

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, &FieldError{Field: "email", Message: MsgUserNotFound}
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, &FieldError{Field: "email", Message: MsgInactive}
	}

	return s.login(ctx, key, user, remember, previousToken, "otp")
}

// PasswordLogin serves accounts that have a password set. It has its own
// limiter namespace with the verify policy.
func (s *AuthService) PasswordLogin(ctx context.Context, email, password string, remember bool, previousToken string) (*Login, error) {
	email = normalizeEmail(email)
	if err := validateEmailField(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, &FieldError{Field: "password", Message: fmt.Sprintf(msgRequired, "password")}
	}

	key := ratelimit.LoginKey(email)
	if err := s.throttled(ctx, key, ratelimit.LoginMaxAttempts, "email", MsgLoginLimit); err != nil {
		return nil, err
	}
	if _, err := s.Limiter.Hit(ctx, key, ratelimit.Window); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, &FieldError{Field: "email", Message: MsgBadCredentials}
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, &FieldError{Field: "email", Message: MsgBadCredentials}
	}
	if !user.IsActive() {
		return nil, &FieldError{Field: "email", Message: MsgInactive}
	}

	return s.login(ctx, key, user, remember, previousToken, "password")
}

func (s *AuthService) login(ctx context.Context, limiterKey string, user *models.User, remember bool, previousToken, method string) (*Login, error) {
	if err := s.Limiter.Clear(ctx, limiterKey); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	iss, err := s.Sessions.Start(ctx, user, remember, previousToken)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.Events, TopicUserEvents, user.ID, map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
		"method": method,
	})
	return &Login{User: user, Session: iss}, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.Sessions.End(ctx, token)
}

// RetryAfterSeconds rounds a throttle wait up to whole seconds.
func RetryAfterSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
