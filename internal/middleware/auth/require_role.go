package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/research_repository/internal/logging"
	"github.com/Skotchmaster/research_repository/internal/rbac"
)

// RequireRole must run after RequireLogin.
func RequireRole(slugs ...rbac.RoleSlug) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
			}
			if !u.HasRole(slugs...) {
				logging.FromContext(c.Request().Context()).
					Warn("access_denied", "status", 403, "reason", "missing_role", "path", c.Path())
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
