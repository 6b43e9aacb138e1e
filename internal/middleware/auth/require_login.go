package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/research_repository/internal/logging"
	"github.com/Skotchmaster/research_repository/internal/session"
)

func RequireLogin(sm *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("middleware", "require_login")

			token := SessionToken(c)
			if token == "" {
				l.Warn("auth_failed", "status", 401, "reason", "missing_session")
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
			}
			user, sess, err := sm.Authenticate(ctx, token)
			if err != nil {
				l.Warn("auth_failed", "status", 401, "reason", "invalid_session", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
			}

			SetUser(c, user)
			c.Set(ctxSession, sess)
			ctx = logging.IntoContext(ctx, logging.FromContext(ctx).With("user_id", user.ID))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
