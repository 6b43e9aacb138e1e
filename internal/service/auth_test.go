package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/research_repository/internal/hash"
	"github.com/Skotchmaster/research_repository/internal/models"
)

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func requireField(t *testing.T, err error, field, msg string) {
	t.Helper()
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, field, fe.Field)
	assert.Equal(t, msg, fe.Message)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRequestOTP_Success(t *testing.T) {
	f := newFixture(t)
	f.user(t, "user@example.com", models.UserActive)

	require.NoError(t, f.auth.RequestOTP(context.Background(), "User@Example.com"))
	assert.Len(t, f.mailer.last("user@example.com"), 6)
	assert.Contains(t, f.events.types(TopicUserEvents), "otp_requested")
}

func TestRequestOTP_UnknownAndInactive(t *testing.T) {
	f := newFixture(t)
	f.user(t, "off@example.com", models.UserInactive)
	ctx := context.Background()

	requireField(t, f.auth.RequestOTP(ctx, "nobody@example.com"), "email", MsgNoAccount)
	requireField(t, f.auth.RequestOTP(ctx, "off@example.com"), "email", MsgInactive)
	requireField(t, f.auth.RequestOTP(ctx, "not-an-email"), "email", "The email field must be a valid email address.")
}

func TestRequestOTP_DeliveryFailureIsGeneric(t *testing.T) {
	f := newFixture(t)
	f.user(t, "user@example.com", models.UserActive)
	f.mailer.err = errors.New("dial tcp: connection refused")

	err := f.auth.RequestOTP(context.Background(), "user@example.com")
	requireField(t, err, "email", MsgOTPDelivery)
	assert.ErrorIs(t, err, ErrDelivery)
}

func TestRequestOTP_FourthRequestThrottledUntilWindowElapses(t *testing.T) {
	f := newFixture(t)
	f.user(t, "user@example.com", models.UserActive)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.auth.RequestOTP(ctx, "user@example.com"))
		f.clock.Advance(5 * time.Second)
	}

	err := f.auth.RequestOTP(ctx, "user@example.com")
	var te *ThrottleError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "email", te.Field)
	assert.Equal(t, fmt.Sprintf(MsgOTPRequestLimit, 45), te.Message)
	assert.Equal(t, 45*time.Second, te.RetryAfter)

	f.clock.Advance(45 * time.Second)
	require.NoError(t, f.auth.RequestOTP(ctx, "user@example.com"))
}

func TestVerifyOTP_SixthAttemptThrottledEvenWithCorrectCode(t *testing.T) {
	f := newFixture(t)
	f.user(t, "user@example.com", models.UserActive)
	ctx := context.Background()

	require.NoError(t, f.auth.RequestOTP(ctx, "user@example.com"))
	code := f.mailer.last("user@example.com")

	for i := 0; i < 5; i++ {
		_, err := f.auth.VerifyOTP(ctx, "user@example.com", wrongCode(code), false, "")
		requireField(t, err, "otp", MsgOTPInvalid)
		f.clock.Advance(2 * time.Second)
	}

	_, err := f.auth.VerifyOTP(ctx, "user@example.com", code, false, "")
	var te *ThrottleError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "otp", te.Field)
	assert.Equal(t, fmt.Sprintf(MsgOTPVerifyLimit, 50), te.Message)

	f.clock.Advance(50 * time.Second)
	login, err := f.auth.VerifyOTP(ctx, "user@example.com", code, false, "")
	require.NoError(t, err)
	assert.NotEmpty(t, login.Session.Token)
}

func TestVerifyOTP_ExpiredAfterElevenMinutes(t *testing.T) {
	f := newFixture(t)
	f.user(t, "user@example.com", models.UserActive)
	ctx := context.Background()

	require.NoError(t, f.auth.RequestOTP(ctx, "user@example.com"))
	code := f.mailer.last("user@example.com")
	f.clock.Advance(11 * time.Minute)

	_, err := f.auth.VerifyOTP(ctx, "user@example.com", code, false, "")
	requireField(t, err, "otp", MsgOTPInvalid)
}

func TestVerifyOTP_SingleUseAndFreshSession(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "user@example.com", models.UserActive)
	ctx := context.Background()

	require.NoError(t, f.auth.RequestOTP(ctx, "user@example.com"))
	code := f.mailer.last("user@example.com")

	first, err := f.auth.VerifyOTP(ctx, "user@example.com", code, true, "")
	require.NoError(t, err)
	assert.Equal(t, u.ID, first.User.ID)

	_, err = f.auth.VerifyOTP(ctx, "user@example.com", code, false, first.Session.Token)
	requireField(t, err, "otp", MsgOTPInvalid)

	require.NoError(t, f.auth.RequestOTP(ctx, "user@example.com"))
	second, err := f.auth.VerifyOTP(ctx, "user@example.com", f.mailer.last("user@example.com"), false, first.Session.Token)
	require.NoError(t, err)
	assert.NotEqual(t, first.Session.ID, second.Session.ID)

	_, _, err = f.auth.Sessions.Authenticate(ctx, first.Session.Token)
	assert.Error(t, err, "previous session must be revoked on login")
}

func TestVerifyOTP_WrongLength(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.VerifyOTP(context.Background(), "user@example.com", "123", false, "")
	requireField(t, err, "otp", MsgOTPLength)
}

func TestVerifyOTP_UserDeletedAfterRequest(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "user@example.com", models.UserActive)
	ctx := context.Background()

	require.NoError(t, f.auth.RequestOTP(ctx, "user@example.com"))
	code := f.mailer.last("user@example.com")
	require.NoError(t, f.repo.DeleteUser(ctx, u))

	_, err := f.auth.VerifyOTP(ctx, "user@example.com", code, false, "")
	requireField(t, err, "email", MsgUserNotFound)
}

func TestPasswordLogin(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "pw@example.com", models.UserActive)
	h, err := hash.HashPassword("s3cret-pass")
	require.NoError(t, err)
	u.PasswordHash = &h
	require.NoError(t, f.repo.UpdateUser(context.Background(), u, nil))
	ctx := context.Background()

	_, err = f.auth.PasswordLogin(ctx, "pw@example.com", "nope-nope", false, "")
	requireField(t, err, "email", MsgBadCredentials)

	login, err := f.auth.PasswordLogin(ctx, "pw@example.com", "s3cret-pass", false, "")
	require.NoError(t, err)
	assert.Equal(t, u.ID, login.User.ID)

	require.NoError(t, f.auth.Logout(ctx, login.Session.Token))
	_, _, err = f.auth.Sessions.Authenticate(ctx, login.Session.Token)
	assert.Error(t, err)
}

func TestPasswordLogin_Throttled(t *testing.T) {
	f := newFixture(t)
	f.user(t, "pw@example.com", models.UserActive)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.auth.PasswordLogin(ctx, "pw@example.com", "wrong-pass", false, "")
		requireField(t, err, "email", MsgBadCredentials)
	}
	_, err := f.auth.PasswordLogin(ctx, "pw@example.com", "wrong-pass", false, "")
	var te *ThrottleError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, fmt.Sprintf(MsgLoginLimit, 60), te.Message)
}
