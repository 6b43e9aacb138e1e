package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/repo"
	"github.com/Skotchmaster/research_repository/pkg/db"
)

func setup(t *testing.T) (*Manager, *repo.GormRepo, *models.User, *time.Time) {
	t.Helper()
	gdb, err := db.OpenTest()
	require.NoError(t, err)
	r := repo.New(gdb)

	u := &models.User{Name: "Ada", Email: "ada@example.com", Status: models.UserActive}
	require.NoError(t, r.CreateUser(context.Background(), u, nil))

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m := &Manager{
		Repo:        r,
		Secret:      []byte("secret"),
		TTL:         2 * time.Hour,
		RememberTTL: 30 * 24 * time.Hour,
		Now:         func() time.Time { return now },
	}
	return m, r, u, &now
}

func TestStartAndAuthenticate(t *testing.T) {
	m, _, u, _ := setup(t)
	ctx := context.Background()

	iss, err := m.Start(ctx, u, false, "")
	require.NoError(t, err)

	got, row, err := m.Authenticate(ctx, iss.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, iss.ID, row.ID)
	assert.False(t, row.Remember)
}

func TestStart_RegeneratesIDAndRevokesPrevious(t *testing.T) {
	m, _, u, _ := setup(t)
	ctx := context.Background()

	first, err := m.Start(ctx, u, false, "")
	require.NoError(t, err)
	second, err := m.Start(ctx, u, false, first.Token)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)

	_, _, err = m.Authenticate(ctx, first.Token)
	assert.ErrorIs(t, err, ErrInvalid)
	_, _, err = m.Authenticate(ctx, second.Token)
	assert.NoError(t, err)
}

func TestRememberExtendsLifetime(t *testing.T) {
	m, _, u, now := setup(t)
	ctx := context.Background()

	short, err := m.Start(ctx, u, false, "")
	require.NoError(t, err)
	long, err := m.Start(ctx, u, true, "")
	require.NoError(t, err)

	*now = now.Add(3 * time.Hour)
	_, _, err = m.Authenticate(ctx, short.Token)
	assert.ErrorIs(t, err, ErrInvalid)
	_, _, err = m.Authenticate(ctx, long.Token)
	assert.NoError(t, err)
}

func TestEnd(t *testing.T) {
	m, _, u, _ := setup(t)
	ctx := context.Background()
	iss, err := m.Start(ctx, u, false, "")
	require.NoError(t, err)

	require.NoError(t, m.End(ctx, iss.Token))
	_, _, err = m.Authenticate(ctx, iss.Token)
	assert.ErrorIs(t, err, ErrInvalid)

	assert.NoError(t, m.End(ctx, "garbage"))
}

func TestAuthenticate_InactiveUser(t *testing.T) {
	m, r, u, _ := setup(t)
	ctx := context.Background()
	iss, err := m.Start(ctx, u, false, "")
	require.NoError(t, err)

	u.Status = models.UserInactive
	require.NoError(t, r.UpdateUser(ctx, u, nil))

	_, _, err = m.Authenticate(ctx, iss.Token)
	assert.ErrorIs(t, err, ErrInvalid)
}
