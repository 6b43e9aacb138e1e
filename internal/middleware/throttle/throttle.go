// Package throttle caps request rate per client IP with token buckets.
package throttle

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/research_repository/internal/logging"
)

const staleAfter = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type PerIP struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func New(rps float64, burst int) *PerIP {
	return &PerIP{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

func (p *PerIP) limiter(ip string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.visitors[ip] = v
	}
	v.lastSeen = p.now()
	return v.limiter
}

// Cleanup drops visitors idle for longer than staleAfter.
func (p *PerIP) Cleanup() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := p.now().Add(-staleAfter)
	n := 0
	for ip, v := range p.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(p.visitors, ip)
			n++
		}
	}
	return n
}

func (p *PerIP) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if !p.limiter(ip).Allow() {
				logging.FromContext(c.Request().Context()).
					Warn("throttled", "status", 429, "remote_ip", ip, "path", c.Path())
				c.Response().Header().Set("Retry-After", strconv.Itoa(1))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}
