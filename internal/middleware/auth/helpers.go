package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/session"
)

const (
	ctxUser    = "user"
	ctxSession = "session"
)

// SessionToken prefers an Authorization bearer token over the cookie.
func SessionToken(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if ck, err := c.Cookie(session.CookieName); err == nil {
		return ck.Value
	}
	return ""
}

func SetUser(c echo.Context, u *models.User) { c.Set(ctxUser, u) }

// CurrentUser is nil outside RequireLogin.
func CurrentUser(c echo.Context) *models.User {
	u, _ := c.Get(ctxUser).(*models.User)
	return u
}

func CurrentSession(c echo.Context) *models.Session {
	s, _ := c.Get(ctxSession).(*models.Session)
	return s
}
