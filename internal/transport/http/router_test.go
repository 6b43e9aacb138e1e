package httpserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/research_repository/internal/handlers"
	"github.com/Skotchmaster/research_repository/internal/middleware/csrf"
	"github.com/Skotchmaster/research_repository/internal/middleware/throttle"
	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/otp"
	"github.com/Skotchmaster/research_repository/internal/ratelimit"
	"github.com/Skotchmaster/research_repository/internal/repo"
	"github.com/Skotchmaster/research_repository/internal/service"
	"github.com/Skotchmaster/research_repository/internal/session"
	"github.com/Skotchmaster/research_repository/pkg/db"
)

type nopMailer struct{}

func (nopMailer) SendOTP(context.Context, string, string, time.Time) error { return nil }

type harness struct {
	e        *echo.Echo
	repo     *repo.GormRepo
	sessions *session.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gdb, err := db.OpenTest()
	require.NoError(t, err)

	r := repo.New(gdb)
	sm := &session.Manager{Repo: r, Secret: []byte("test"), TTL: time.Hour, RememberTTL: 24 * time.Hour}
	assets := &service.AssetService{Repo: r}

	e := echo.New()
	Register(e, &Deps{
		DB:       gdb,
		Logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Sessions: sm,
		Throttle: throttle.New(100, 100),
		CSRF:     csrf.DefaultConfig(),
		AuthHandler: &handlers.AuthHandler{
			Auth: &service.AuthService{
				Repo: r, OTP: otp.New(gdb, nopMailer{}),
				Limiter: ratelimit.New(ratelimit.NewMemoryStore()), Sessions: sm,
			},
			HomeRoute: "/dashboard",
		},
		RBACHandler:       &handlers.RBACHandler{RBAC: &service.RBACService{Repo: r}},
		UserHandler:       &handlers.UserHandler{Users: &service.UserService{Repo: r}},
		AssetHandler:      &handlers.AssetHandler{Assets: assets},
		ClientHandler:     &handlers.ClientHandler{Clients: &service.ClientService{Repo: r}},
		RepositoryHandler: &handlers.RepositoryHandler{Assets: assets},
	})
	return &harness{e: e, repo: r, sessions: sm}
}

func (h *harness) token(t *testing.T, email string, roles ...string) string {
	t.Helper()
	ctx := context.Background()
	var ids []uint
	for _, slug := range roles {
		role := &models.Role{Name: slug, Slug: slug}
		require.NoError(t, h.repo.CreateRole(ctx, role, nil))
		ids = append(ids, role.ID)
	}
	u := &models.User{Name: email, Email: email, Status: models.UserActive}
	require.NoError(t, h.repo.CreateUser(ctx, u, ids))
	issued, err := h.sessions.Start(ctx, u, false, "")
	require.NoError(t, err)
	return issued.Token
}

func (h *harness) do(method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health/ready", "").Code)
}

func TestAccessLevels(t *testing.T) {
	h := newHarness(t)
	viewer := h.token(t, "viewer@example.com", "viewer")
	admin := h.token(t, "admin@example.com", "admin")

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/repository/assets", "").Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/me", viewer).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/assets", viewer).Code)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/users", viewer).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/roles", viewer).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/users", admin).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/permissions", admin).Code)
}

func TestCookieSessionNeedsCSRFToken(t *testing.T) {
	h := newHarness(t)
	tok := h.token(t, "admin@example.com", "admin")

	req := httptest.NewRequest(http.MethodPost, "/roles", strings.NewReader(`{"name":"Editor","slug":"editor"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: tok})
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/roles", strings.NewReader(`{"name":"Editor","slug":"editor"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: tok})
	req.Header.Set("Origin", "http://example.com")
	req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "abc"})
	req.Header.Set("X-CSRF-Token", "abc")
	rec = httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}
