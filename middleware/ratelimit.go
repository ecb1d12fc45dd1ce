package middleware

import (
	"sync"
	"time"

	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/server"
)

// RateLimitConfig configures a rate limiter.
type RateLimitConfig struct {
	// MaxCommandsPerSecond is the steady-state token refill rate.
	MaxCommandsPerSecond float64
	// BurstSize is the maximum number of tokens a connection can bank.
	BurstSize int
}

// RateLimiter is a CommandInterceptor enforcing a token-bucket limit
// on commands for a single connection. One Conn gets one RateLimiter;
// unlike the teacher's address-keyed map, Conn no longer knows its
// remote address (that's the driving loop's concern), so the bucket
// lives directly on the interceptor instance instead.
type RateLimiter struct {
	cfg RateLimitConfig

	mu        sync.Mutex
	tokens    float64
	lastCheck time.Time
}

// RateLimit returns an interceptor enforcing config against a single
// connection. Attach a fresh one to each Conn.
func RateLimit(config RateLimitConfig) *RateLimiter {
	if config.MaxCommandsPerSecond <= 0 {
		config.MaxCommandsPerSecond = 100
	}
	if config.BurstSize <= 0 {
		config.BurstSize = 10
	}
	return &RateLimiter{
		cfg:       config,
		tokens:    float64(config.BurstSize),
		lastCheck: time.Now(),
	}
}

func (r *RateLimiter) Before(c *server.Conn, tag, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastCheck).Seconds()
	r.lastCheck = now
	r.tokens += elapsed * r.cfg.MaxCommandsPerSecond
	if r.tokens > float64(r.cfg.BurstSize) {
		r.tokens = float64(r.cfg.BurstSize)
	}

	if r.tokens < 1 {
		return imap.ErrBad("rate limit exceeded")
	}
	r.tokens--
	return nil
}

func (r *RateLimiter) After(c *server.Conn, tag, name string, dur time.Duration, err error) {}
