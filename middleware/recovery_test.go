package middleware_test

import (
	"testing"

	"github.com/meszmate/imap-flow/middleware"
)

func TestRecoveryLogger_NoErrorNoLog(t *testing.T) {
	c := newTestConn(t)
	c.AddInterceptor(middleware.Recovery())
	progress(t, c, "A001 NOOP")
}

func TestRecoveryLogger_UnknownCommandDoesNotPanic(t *testing.T) {
	// Conn recovers panics in its own command dispatch and replies NO;
	// this only asserts the interceptor doesn't itself panic when an
	// unknown command is dispatched.
	c := newTestConn(t)
	c.AddInterceptor(middleware.Recovery())
	progress(t, c, "A001 BOGUSCOMMAND")
}
