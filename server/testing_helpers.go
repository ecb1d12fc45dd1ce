package server

import (
	"github.com/rs/zerolog"
)

// NewTestConn creates a Conn suitable for use in tests: a minimal
// Server configuration with the given Session factory and logger,
// feeding it no bytes and performing no I/O of its own. Tests drive it
// the same way a real caller would, via Progress.
func NewTestConn(newSession func(conn *Conn) (Session, error), logger zerolog.Logger) (*Conn, error) {
	srv := New(WithLogger(logger), WithNewSession(newSession))
	return NewConn(srv)
}
