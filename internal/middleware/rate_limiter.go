package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"pharmapos/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ── Fixed-window limiter ──────────────────────────────────────────────────────

// windowEntry tracks request counts per IP within one window.
type windowEntry struct {
	count     int
	windowEnd time.Time
}

type windowLimiter struct {
	name   string
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*windowEntry
}

func newWindowLimiter(name string, limit int, window time.Duration) *windowLimiter {
	l := &windowLimiter{
		name:    name,
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*windowEntry),
	}
	go l.purgeLoop()
	return l
}

// allow counts one hit for key and returns false once the window's budget is spent.
func (l *windowLimiter) allow(key string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[key]
	if !ok || now.After(entry.windowEnd) {
		entry = &windowEntry{windowEnd: now.Add(l.window)}
		l.entries[key] = entry
	}
	entry.count++
	return entry.count <= l.limit, entry.windowEnd
}

func (l *windowLimiter) handler(message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, resetAt := l.allow(c.ClientIP())
		if !ok {
			retry := int(time.Until(resetAt).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(message))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return newWindowLimiter("login", 20, time.Minute).
		handler("Too many login attempts. Try again in a minute.")
}

// RateLimiter is the general API limiter: limit requests per window per IP.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return newWindowLimiter("api", limit, window).
		handler("Too many requests. Please try again shortly.")
}

// ── Purge goroutine ───────────────────────────────────────────────────────────
// Periodically drops expired entries so IPs that never return do not pile up.

const purgeInterval = 5 * time.Minute

func (l *windowLimiter) purgeLoop() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for range ticker.C {
		if purged, remaining := l.purge(); purged > 0 {
			log.Debug().
				Str("limiter", l.name).
				Int("entries_purged", purged).
				Int("entries_remaining", remaining).
				Msg("rate limiter entries purged")
		}
	}
}

func (l *windowLimiter) purge() (purged, remaining int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, entry := range l.entries {
		if now.After(entry.windowEnd) {
			delete(l.entries, key)
			purged++
		}
	}
	return purged, len(l.entries)
}
