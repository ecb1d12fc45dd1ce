// Package server implements the server side of an IMAP4rev1 session on
// top of a sans-I/O flow.Kernel: Conn consumes bytes handed to it and
// produces bytes to write, never touching a net.Conn itself. Listening,
// accepting, and TLS handshakes are the driving loop's job.
package server

import (
	"github.com/rs/zerolog"

	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/extension"
)

// Server holds configuration shared by every Conn it constructs. It
// owns no listener and no connection table; that bookkeeping belongs
// to whatever accepts net.Conns and drives each Conn's Progress loop.
type Server struct {
	options *Options
}

// New creates a Server with the given options.
func New(opts ...Option) *Server {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Server{options: options}
}

// Options returns the server's configuration.
func (srv *Server) Options() *Options {
	return srv.options
}

// Logger returns the server's structured logger.
func (srv *Server) Logger() zerolog.Logger {
	return srv.options.Logger
}

// Capabilities returns the capabilities to advertise to c, layering
// connection-specific conditions (STARTTLS only before a handshake,
// LOGINDISABLED before TLS when insecure auth isn't allowed) on top of
// the configured base set.
func (srv *Server) Capabilities(c *Conn) []imap.Cap {
	caps := srv.options.Caps.Clone()

	if srv.options.EnableStartTLS && !c.IsTLS() {
		caps.Add(imap.CapStartTLS)
	}
	if !c.IsTLS() && !srv.options.AllowInsecureAuth {
		caps.Add(imap.CapLogindisabled)
	}
	for _, ext := range srv.options.Extensions {
		caps.Add(ext.Capabilities()...)
	}

	return caps.All()
}

// Extensions returns the server's resolved extensions in dependency
// order, for a Session that wants to check which optional session
// interfaces (e.g. extensions/uidplus.SessionUIDPlus) it should expect
// to be asked to implement.
func (srv *Server) Extensions() []extension.Extension {
	return srv.options.Extensions
}

// NewConn constructs a fresh Conn bound to srv, ready for the driving
// loop to start feeding it bytes.
func (srv *Server) NewConn() (*Conn, error) {
	return NewConn(srv)
}
