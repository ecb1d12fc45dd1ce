package middleware

import (
	"time"

	"github.com/meszmate/imap-flow/server"
)

// SlowCommandLogger is a CommandInterceptor that flags commands whose
// dispatch took longer than d. Unlike the teacher's Timeout
// middleware, it cannot preempt a running command: a sans-I/O Conn
// calls Session methods synchronously with no goroutine to cancel, so
// there is no "abort and return ErrNo" point to hook. A Session that
// wants real cancellation should honor a context.Context of its own
// construction; this interceptor only surfaces commands worth
// investigating.
type SlowCommandLogger struct {
	threshold time.Duration
}

// Timeout returns an interceptor that logs commands slower than d.
func Timeout(d time.Duration) *SlowCommandLogger {
	return &SlowCommandLogger{threshold: d}
}

func (t *SlowCommandLogger) Before(c *server.Conn, tag, name string) error { return nil }

func (t *SlowCommandLogger) After(c *server.Conn, tag, name string, dur time.Duration, err error) {
	if dur < t.threshold {
		return
	}
	c.Logger().Warn().
		Str("tag", tag).
		Str("command", name).
		Dur("duration", dur).
		Dur("threshold", t.threshold).
		Msg("slow command")
}
