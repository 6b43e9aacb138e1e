package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/research_repository/internal/logging"
	authmw "github.com/Skotchmaster/research_repository/internal/middleware/auth"
	"github.com/Skotchmaster/research_repository/internal/service"
	"github.com/Skotchmaster/research_repository/internal/session"
)

type AuthHandler struct {
	Auth         *service.AuthService
	HomeRoute    string
	SecureCookie bool
}

func (h *AuthHandler) RequestOTP(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_otp_request")

	var req struct {
		Email string `json:"email" form:"email"`
	}
	if err := bindBody(c, l, "otp_request_error", &req); err != nil {
		return err
	}

	if err := h.Auth.RequestOTP(ctx, req.Email); err != nil {
		return fail(c, l, "otp_request_failed", err)
	}

	l.Info("otp_request_success", "status", 200)
	return c.JSON(http.StatusOK, echo.Map{"message": service.MsgOTPSent})
}

func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_otp_verify")

	var req struct {
		Email    string `json:"email" form:"email"`
		OTP      string `json:"otp" form:"otp"`
		Remember bool   `json:"remember" form:"remember"`
	}
	if err := bindBody(c, l, "otp_verify_error", &req); err != nil {
		return err
	}

	login, err := h.Auth.VerifyOTP(ctx, req.Email, req.OTP, req.Remember, authmw.SessionToken(c))
	if err != nil {
		return fail(c, l, "otp_verify_failed", err)
	}

	return h.startSession(c, login, "otp_verify_success")
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
		Remember bool   `json:"remember" form:"remember"`
	}
	if err := bindBody(c, l, "login_error", &req); err != nil {
		return err
	}

	login, err := h.Auth.PasswordLogin(ctx, req.Email, req.Password, req.Remember, authmw.SessionToken(c))
	if err != nil {
		return fail(c, l, "login_failed", err)
	}

	return h.startSession(c, login, "login_success")
}

// startSession replaces whatever session cookie the client had and sends it
// to the home route.
func (h *AuthHandler) startSession(c echo.Context, login *service.Login, event string) error {
	c.SetCookie(CreateCookie(session.CookieName, login.Session.Token, "/", login.Session.ExpiresAt, h.SecureCookie))
	logging.FromContext(c.Request().Context()).
		Info(event, "status", 303, "user_id", login.User.ID)
	return c.Redirect(http.StatusSeeOther, h.HomeRoute)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	if err := h.Auth.Logout(ctx, authmw.SessionToken(c)); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot revoke session", "error", err)
	}

	c.SetCookie(DeleteCookie(session.CookieName, "/", h.SecureCookie))
	l.Info("logout_success")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandler) Me(c echo.Context) error {
	u := authmw.CurrentUser(c)
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, r.Slug)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":     u.ID,
		"name":   u.Name,
		"email":  u.Email,
		"status": u.Status,
		"roles":  roles,
	})
}
