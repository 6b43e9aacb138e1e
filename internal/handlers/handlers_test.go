package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authmw "github.com/Skotchmaster/research_repository/internal/middleware/auth"
	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/otp"
	"github.com/Skotchmaster/research_repository/internal/ratelimit"
	"github.com/Skotchmaster/research_repository/internal/repo"
	"github.com/Skotchmaster/research_repository/internal/service"
	"github.com/Skotchmaster/research_repository/internal/session"
	"github.com/Skotchmaster/research_repository/pkg/db"
)

type inbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *inbox) SendOTP(_ context.Context, email, code string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[email] = code
	return nil
}

func (m *inbox) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

type testServer struct {
	e     *echo.Echo
	repo  *repo.GormRepo
	inbox *inbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gdb, err := db.OpenTest()
	require.NoError(t, err)

	now := func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	r := repo.New(gdb)
	mb := &inbox{}
	otps := otp.New(gdb, mb)
	otps.Now = now
	lim := ratelimit.New(ratelimit.NewMemoryStore())
	lim.Now = now
	sm := &session.Manager{Repo: r, Secret: []byte("test"), TTL: 2 * time.Hour, RememberTTL: 720 * time.Hour, Now: now}

	auth := &AuthHandler{
		Auth:      &service.AuthService{Repo: r, OTP: otps, Limiter: lim, Sessions: sm},
		HomeRoute: "/dashboard",
	}
	rbacH := &RBACHandler{RBAC: &service.RBACService{Repo: r}}
	assets := &service.AssetService{Repo: r, Now: now}
	repoH := &RepositoryHandler{Assets: assets}

	e := echo.New()
	e.POST("/auth/otp/request", auth.RequestOTP)
	e.POST("/auth/otp/verify", auth.VerifyOTP)
	e.GET("/repository/assets/:id", repoH.Show)
	e.GET("/repository/search", repoH.Search)

	g := e.Group("", authmw.RequireLogin(sm))
	g.GET("/me", auth.Me)
	g.POST("/permissions", rbacH.CreatePermission)
	g.DELETE("/permissions/:id", rbacH.DeletePermission)
	g.POST("/roles", rbacH.CreateRole)

	return &testServer{e: e, repo: r, inbox: mb}
}

func (s *testServer) do(method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	rec := s.do(http.MethodPost, "/auth/otp/request", `{"email":"`+email+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/auth/otp/verify", `{"email":"`+email+`","otp":"`+s.inbox.code(email)+`"}`, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == session.CookieName {
			return ck
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestOTPLoginFlow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, s.repo.CreateUser(ctx, &models.User{Name: "Ana", Email: "ana@example.com", Status: models.UserActive}, nil))

	rec := s.do(http.MethodPost, "/auth/otp/request", `{"email":"ana@example.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.MsgOTPSent, decode(t, rec)["message"])

	code := s.inbox.code("ana@example.com")
	require.Len(t, code, 6)

	rec = s.do(http.MethodPost, "/auth/otp/verify", `{"email":"ana@example.com","otp":"`+code+`"}`, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))

	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == session.CookieName {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	rec = s.do(http.MethodGet, "/me", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana@example.com", decode(t, rec)["email"])

	rec = s.do(http.MethodPost, "/auth/otp/verify", `{"email":"ana@example.com","otp":"`+code+`"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRequestOTPThrottled(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.repo.CreateUser(context.Background(),
		&models.User{Name: "Ana", Email: "ana@example.com", Status: models.UserActive}, nil))

	for i := 0; i < 3; i++ {
		rec := s.do(http.MethodPost, "/auth/otp/request", `{"email":"ana@example.com"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.do(http.MethodPost, "/auth/otp/request", `{"email":"ana@example.com"}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	body := decode(t, rec)
	assert.Contains(t, body["errors"], "email")
	assert.Contains(t, body["message"], "60 seconds")
}

func TestRequestOTPUnknownEmail(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/auth/otp/request", `{"email":"nobody@example.com"}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, service.MsgNoAccount, decode(t, rec)["message"])
}

func TestProtectedRouteNeedsSession(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/me", "", &http.Cookie{Name: session.CookieName, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidationAndConflictResponses(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, s.repo.CreateUser(ctx, &models.User{Name: "Ana", Email: "ana@example.com", Status: models.UserActive}, nil))
	cookie := s.login(t, "ana@example.com")

	rec := s.do(http.MethodPost, "/roles", `{"name":"","slug":""}`, cookie)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, msgInvalidData, body["message"])
	assert.Contains(t, body["errors"], "name")

	rec = s.do(http.MethodPost, "/permissions", `{"name":"View assets","slug":"assets.view"}`, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	permID := int(decode(t, rec)["id"].(float64))

	for _, slug := range []string{"editor", "viewer"} {
		rec = s.do(http.MethodPost, "/roles", `{"name":"`+slug+`","slug":"`+slug+`","permission_ids":[`+strconv.Itoa(permID)+`]}`, cookie)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodDelete, "/permissions/"+strconv.Itoa(permID), "", cookie)
	require.Equal(t, http.StatusConflict, rec.Code)
	body = decode(t, rec)
	assert.EqualValues(t, 2, body["count"])
	assert.Equal(t, "Cannot delete permission: it is assigned to 2 role(s).", body["message"])

	rec = s.do(http.MethodDelete, "/permissions/abc", "", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRepositoryHidesUnpublished(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	owner := &models.User{Name: "Ana", Email: "ana@example.com", Status: models.UserActive}
	require.NoError(t, s.repo.CreateUser(ctx, owner, nil))
	draft := &models.Asset{Title: "Draft", Type: models.AssetReport, UserID: owner.ID}
	require.NoError(t, s.repo.CreateAsset(ctx, draft))

	rec := s.do(http.MethodGet, "/repository/assets/"+strconv.Itoa(int(draft.ID)), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/repository/search?q=draft", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
