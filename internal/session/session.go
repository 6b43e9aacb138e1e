// Package session issues and checks authenticated sessions. A session is a
// row in the sessions table plus an HS256 token that names it.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/research_repository/internal/models"
	"github.com/Skotchmaster/research_repository/internal/repo"
	"github.com/Skotchmaster/research_repository/pkg/tokens"
)

const CookieName = "session"

var ErrInvalid = errors.New("invalid session")

type Store interface {
	CreateSession(ctx context.Context, s *models.Session) error
	FindSession(ctx context.Context, id string) (*models.Session, error)
	RevokeSession(ctx context.Context, id string) error
	FindUser(ctx context.Context, id uint) (*models.User, error)
}

type Manager struct {
	Repo        Store
	Secret      []byte
	TTL         time.Duration
	RememberTTL time.Duration
	Now         func() time.Time
}

type Issued struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now().UTC()
	}
	return m.Now().UTC()
}

// Start opens a new session for user under a fresh id. A still-valid token
// presented by the caller is revoked first, so a planted id never survives
// login.
func (m *Manager) Start(ctx context.Context, user *models.User, remember bool, previous string) (*Issued, error) {
	if previous != "" {
		if claims, err := tokens.SessionClaimsFromToken(previous, m.Secret, m.now()); err == nil {
			if err := m.Repo.RevokeSession(ctx, claims.ID); err != nil {
				return nil, fmt.Errorf("revoke previous session: %w", err)
			}
		}
	}

	now := m.now()
	ttl := m.TTL
	if remember {
		ttl = m.RememberTTL
	}
	row := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(ttl),
		Remember:  remember,
		CreatedAt: now,
	}
	if err := m.Repo.CreateSession(ctx, row); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	tok, err := tokens.SignSession(user.ID, row.ID, now, row.ExpiresAt, m.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &Issued{Token: tok, ID: row.ID, ExpiresAt: row.ExpiresAt}, nil
}

// Authenticate resolves token to an active user with roles loaded.
func (m *Manager) Authenticate(ctx context.Context, token string) (*models.User, *models.Session, error) {
	now := m.now()
	claims, err := tokens.SessionClaimsFromToken(token, m.Secret, now)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	row, err := m.Repo.FindSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: unknown session", ErrInvalid)
		}
		return nil, nil, err
	}
	if row.Revoked || !now.Before(row.ExpiresAt) {
		return nil, nil, fmt.Errorf("%w: session closed", ErrInvalid)
	}
	uid, err := claims.UserID()
	if err != nil || uid != row.UserID {
		return nil, nil, fmt.Errorf("%w: subject mismatch", ErrInvalid)
	}

	user, err := m.Repo.FindUser(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: user gone", ErrInvalid)
		}
		return nil, nil, err
	}
	if !user.IsActive() {
		return nil, nil, fmt.Errorf("%w: user inactive", ErrInvalid)
	}
	return user, row, nil
}

// End revokes the session named by token. Unknown or malformed tokens are
// ignored.
func (m *Manager) End(ctx context.Context, token string) error {
	claims, err := tokens.SessionClaimsFromToken(token, m.Secret, m.now())
	if err != nil {
		return nil
	}
	return m.Repo.RevokeSession(ctx, claims.ID)
}
