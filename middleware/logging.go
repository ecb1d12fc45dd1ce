package middleware

import (
	"time"

	"github.com/meszmate/imap-flow/server"
)

// LoggingInterceptor logs command start/completion through the
// connection's zerolog.Logger.
type LoggingInterceptor struct{}

// Logging returns an interceptor that logs command execution.
func Logging() *LoggingInterceptor {
	return &LoggingInterceptor{}
}

func (l *LoggingInterceptor) Before(c *server.Conn, tag, name string) error {
	c.Logger().Info().
		Str("tag", tag).
		Str("command", name).
		Str("state", c.State().String()).
		Msg("command start")
	return nil
}

func (l *LoggingInterceptor) After(c *server.Conn, tag, name string, dur time.Duration, err error) {
	if err != nil {
		c.Logger().Warn().
			Str("tag", tag).
			Str("command", name).
			Dur("duration", dur).
			Err(err).
			Msg("command error")
		return
	}
	c.Logger().Info().
		Str("tag", tag).
		Str("command", name).
		Dur("duration", dur).
		Msg("command done")
}
