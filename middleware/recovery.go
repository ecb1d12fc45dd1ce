package middleware

import (
	"time"

	"github.com/meszmate/imap-flow/server"
)

// RecoveryLogger is a CommandInterceptor that logs the panics Conn's
// own built-in recover already turned into an internal-error reply.
// Conn recovers panics itself (a bad command must never take down the
// whole connection), so this interceptor only adds the structured log
// line; it does not do any recovering of its own.
type RecoveryLogger struct{}

// Recovery returns an interceptor that logs recovered panics.
func Recovery() *RecoveryLogger {
	return &RecoveryLogger{}
}

func (RecoveryLogger) Before(c *server.Conn, tag, name string) error { return nil }

func (RecoveryLogger) After(c *server.Conn, tag, name string, dur time.Duration, err error) {
	if err == nil {
		return
	}
	c.Logger().Error().
		Str("tag", tag).
		Str("command", name).
		Err(err).
		Msg("command failed")
}
