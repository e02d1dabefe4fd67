package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = time.Minute
)

// IPごとのトークンバケット
type ipLimiter struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	limiters  map[string]*limiterEntry
	lastSweep time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func (l *ipLimiter) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[ip]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[ip] = e
	}
	e.lastSeen = now

	if now.Sub(l.lastSweep) >= limiterSweepEvery {
		l.sweep(now)
	}
	return e.lim
}

// 掃除は最大で1分に1回
func (l *ipLimiter) sweep(now time.Time) {
	for k, v := range l.limiters {
		if now.Sub(v.lastSeen) > limiterIdleTTL {
			delete(l.limiters, k)
		}
	}
	l.lastSweep = now
}

func newIPLimiter(rps float64, burst int, now time.Time) *ipLimiter {
	return &ipLimiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		limiters:  map[string]*limiterEntry{},
		lastSweep: now,
	}
}

// RateLimit はIP単位で制限し、超えたら429
func RateLimit(rps float64, burst int) echo.MiddlewareFunc {
	l := newIPLimiter(rps, burst, time.Now())

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.get(c.RealIP(), time.Now()).Allow() {
				return c.JSON(http.StatusTooManyRequests, errorJSON("Request was throttled."))
			}
			return next(c)
		}
	}
}
