// Package middleware provides cross-cutting CommandInterceptors for the
// IMAP server: logging, metrics, rate limiting, and panic recovery.
// Each one implements server.CommandInterceptor and is registered on a
// Conn with Conn.AddInterceptor; Conn calls Before ahead of dispatching
// a command and After once it (or a Before rejection) has finished.
package middleware

import (
	"time"

	"github.com/meszmate/imap-flow/server"
)

// Chain combines several interceptors into one that runs Before in
// registration order and After in reverse order, so the first
// interceptor in the list is the outermost: it sees the command first
// and observes the final outcome last.
func Chain(interceptors ...server.CommandInterceptor) server.CommandInterceptor {
	return &chain{interceptors: interceptors}
}

type chain struct {
	interceptors []server.CommandInterceptor
}

func (ch *chain) Before(c *server.Conn, tag, name string) error {
	for _, ic := range ch.interceptors {
		if err := ic.Before(c, tag, name); err != nil {
			return err
		}
	}
	return nil
}

func (ch *chain) After(c *server.Conn, tag, name string, dur time.Duration, err error) {
	for i := len(ch.interceptors) - 1; i >= 0; i-- {
		ch.interceptors[i].After(c, tag, name, dur, err)
	}
}
