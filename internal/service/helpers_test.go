package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/otp"
	"github.com/Skotchmaster/research_repository/internal/ratelimit"
	"github.com/Skotchmaster/research_repository/internal/rbac"
	"github.com/Skotchmaster/research_repository/internal/repo"
	"github.com/Skotchmaster/research_repository/internal/search"
	"github.com/Skotchmaster/research_repository/internal/session"
	"github.com/Skotchmaster/research_repository/pkg/db"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (m *captureMailer) SendOTP(_ context.Context, email, code string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[email] = code
	return nil
}

func (m *captureMailer) last(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

type recordedEvent struct {
	topic, key string
	event      any
}

type eventSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (s *eventSink) PublishEvent(_ context.Context, topic, key string, event any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{topic, key, event})
	return nil
}

func (s *eventSink) types(topic string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.events {
		if e.topic != topic {
			continue
		}
		if m, ok := e.event.(map[string]any); ok {
			out = append(out, m["type"].(string))
		}
	}
	return out
}

type fakeIndex struct {
	docs map[uint]search.Document
}

func (f *fakeIndex) IndexAsset(_ context.Context, a *models.Asset) error {
	if f.docs == nil {
		f.docs = map[uint]search.Document{}
	}
	f.docs[a.ID] = search.FromAsset(a)
	return nil
}

func (f *fakeIndex) DeleteAsset(_ context.Context, id uint) error {
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ string, _, _ int) (*search.Result, error) {
	res := &search.Result{}
	for _, d := range f.docs {
		res.Hits = append(res.Hits, d)
	}
	res.Total = int64(len(res.Hits))
	return res, nil
}

type fakeFiles struct{}

func (fakeFiles) PresignPut(_ context.Context, key string) (string, error) {
	return "https://s3.local/put/" + key, nil
}

func (fakeFiles) PresignGet(_ context.Context, key string) (string, error) {
	return "https://s3.local/get/" + key, nil
}

type fixture struct {
	repo    *repo.GormRepo
	clock   *clock
	mailer  *captureMailer
	events  *eventSink
	index   *fakeIndex
	auth    *AuthService
	rbac    *RBACService
	users   *UserService
	assets  *AssetService
	clients *ClientService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := db.OpenTest()
	require.NoError(t, err)

	r := repo.New(gdb)
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := &captureMailer{}
	ev := &eventSink{}
	idx := &fakeIndex{}

	otps := otp.New(gdb, m)
	otps.Now = c.Now

	lim := ratelimit.New(ratelimit.NewMemoryStore())
	lim.Now = c.Now

	sessions := &session.Manager{
		Repo: r, Secret: []byte("test"), TTL: 2 * time.Hour, RememberTTL: 720 * time.Hour, Now: c.Now,
	}

	return &fixture{
		repo:    r,
		clock:   c,
		mailer:  m,
		events:  ev,
		index:   idx,
		auth:    &AuthService{Repo: r, OTP: otps, Limiter: lim, Sessions: sessions, Events: ev},
		rbac:    &RBACService{Repo: r, Events: ev},
		users:   &UserService{Repo: r, Events: ev},
		assets:  &AssetService{Repo: r, Index: idx, Files: fakeFiles{}, Events: ev, Now: c.Now},
		clients: &ClientService{Repo: r, Events: ev},
	}
}

func (f *fixture) user(t *testing.T, email string, status models.UserStatus, roles ...rbac.RoleSlug) *models.User {
	t.Helper()
	ctx := context.Background()
	var ids []uint
	for _, slug := range roles {
		role, err := f.repo.FindRoleBySlug(ctx, string(slug))
		if err != nil {
			role = &models.Role{Name: string(slug), Slug: string(slug)}
			require.NoError(t, f.repo.CreateRole(ctx, role, nil))
		}
		ids = append(ids, role.ID)
	}
	u := &models.User{Name: email, Email: email, Status: status}
	require.NoError(t, f.repo.CreateUser(ctx, u, ids))
	got, err := f.repo.FindUser(ctx, u.ID)
	require.NoError(t, err)
	return got
}
