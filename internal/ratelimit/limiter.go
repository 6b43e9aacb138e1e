// Package ratelimit implements a fixed-window attempt counter keyed by
// action and identity. State lives in an injected Store.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
)

const (
	OTPRequestMaxAttempts = 3
	OTPVerifyMaxAttempts  = 5
	LoginMaxAttempts      = 5
	Window                = 60 * time.Second
)

var ErrNotFound = errors.New("ratelimit: counter not found")

type Counter struct {
	Attempts        int
	WindowStartedAt time.Time
	Window          time.Duration
}

func (c Counter) resetsAt() time.Time { return c.WindowStartedAt.Add(c.Window) }

func (c Counter) expired(now time.Time) bool { return !now.Before(c.resetsAt()) }

type Store interface {
	Get(ctx context.Context, key string) (Counter, error)
	Put(ctx context.Context, key string, c Counter) error
	Delete(ctx context.Context, key string) error
}

type Limiter struct {
	Store Store
	Now   func() time.Time
}

func New(store Store) *Limiter {
	return &Limiter{Store: store, Now: time.Now}
}

func (l *Limiter) now() time.Time {
	if l.Now == nil {
		return time.Now().UTC()
	}
	return l.Now().UTC()
}

func (l *Limiter) current(ctx context.Context, key string) (Counter, bool, error) {
	c, err := l.Store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return Counter{}, false, nil
	}
	if err != nil {
		return Counter{}, false, err
	}
	if c.expired(l.now()) {
		return Counter{}, false, nil
	}
	return c, true, nil
}

// Hit counts one attempt. A missing or elapsed window starts a new one.
func (l *Limiter) Hit(ctx context.Context, key string, window time.Duration) (int, error) {
	c, ok, err := l.current(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		c = Counter{WindowStartedAt: l.now(), Window: window}
	}
	c.Attempts++
	if err := l.Store.Put(ctx, key, c); err != nil {
		return 0, err
	}
	return c.Attempts, nil
}

func (l *Limiter) TooManyAttempts(ctx context.Context, key string, maxAttempts int) (bool, error) {
	c, ok, err := l.current(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	return c.Attempts >= maxAttempts, nil
}

// AvailableIn returns whole seconds, rounded up, until the window resets.
func (l *Limiter) AvailableIn(ctx context.Context, key string) (int, error) {
	c, ok, err := l.current(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	left := c.resetsAt().Sub(l.now())
	return int(math.Ceil(left.Seconds())), nil
}

func (l *Limiter) Clear(ctx context.Context, key string) error {
	return l.Store.Delete(ctx, key)
}

func RequestKey(email string) string { return "otp-request:" + normalize(email) }

func VerifyKey(email string) string { return "otp-verify:" + normalize(email) }

func LoginKey(email string) string { return "login:" + normalize(email) }

func normalize(email string) string { return strings.ToLower(strings.TrimSpace(email)) }
