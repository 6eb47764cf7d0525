// middleware/ratelimit.go
package middleware

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AttemptLimiter is a fixed-window attempt counter keyed by caller-chosen
// strings (e.g. "team_invitations:42"). The invitation lifecycle consults
// it before creating invitations and hits it after. Increments happen
// under one lock so two concurrent callers cannot both pass the threshold
// and both record the same attempt slot.
type AttemptLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]*attemptWindow
}

type attemptWindow struct {
	count    int
	resetsAt time.Time
}

func NewAttemptLimiter(window time.Duration) *AttemptLimiter {
	l := &AttemptLimiter{
		window:  window,
		entries: make(map[string]*attemptWindow),
	}
	go l.startCleanupRoutine()
	return l
}

// TooManyAttempts reports whether the key has used up its allowance for
// the current window.
func (l *AttemptLimiter) TooManyAttempts(key string, max int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || time.Now().After(entry.resetsAt) {
		return false
	}
	return entry.count >= max
}

// Hit records one attempt for the key, starting a new window if the
// previous one has lapsed.
func (l *AttemptLimiter) Hit(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	entry, ok := l.entries[key]
	if !ok || now.After(entry.resetsAt) {
		l.entries[key] = &attemptWindow{count: 1, resetsAt: now.Add(l.window)}
		return
	}
	entry.count++
}

// AvailableIn returns the number of seconds until the key's window resets.
// Returns 0 when the key is not currently limited.
func (l *AttemptLimiter) AvailableIn(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		return 0
	}

	remaining := time.Until(entry.resetsAt)
	if remaining <= 0 {
		return 0
	}
	// Round up so "try again in N seconds" never under-promises.
	return int((remaining + time.Second - 1) / time.Second)
}

// Clear drops the window for a key.
func (l *AttemptLimiter) Clear(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Cleanup expired windows every 10 minutes
func (l *AttemptLimiter) startCleanupRoutine() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, entry := range l.entries {
			if now.After(entry.resetsAt) {
				delete(l.entries, key)
			}
		}
		l.mu.Unlock()
	}
}

// Per-IP request limiting for the HTTP surface

var generalLimiter *AttemptLimiter

var generalMaxReq int

func init() {
	generalMaxReq = getEnvInt("RATE_LIMIT_MAX_REQUESTS", 100)
	windowSeconds := getEnvInt("RATE_LIMIT_WINDOW_MS", 900000) / 1000 // 15 min default
	if windowSeconds <= 0 {
		windowSeconds = 900 // guard
	}
	generalLimiter = NewAttemptLimiter(time.Duration(windowSeconds) * time.Second)
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}

func rateLimitDisabled() bool {
	// RATE_LIMIT_ENABLED=false disables limiter
	val := strings.ToLower(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")))
	return val == "false" || val == "0" || val == "no"
}

// FiberRateLimitMiddleware applies general per-IP rate limiting
func FiberRateLimitMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rateLimitDisabled() {
			return c.Next()
		}
		path := c.Path()
		if path == "/health" || path == "/api/health" {
			return c.Next()
		}

		clientIP := c.IP()
		if generalLimiter.TooManyAttempts(clientIP, generalMaxReq) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Rate limit exceeded. Please try again later.",
			})
		}
		generalLimiter.Hit(clientIP)
		return c.Next()
	}
}
