package middleware_test

import (
	"testing"
	"time"

	"github.com/meszmate/imap-flow/middleware"
	"github.com/meszmate/imap-flow/server"
	"github.com/meszmate/imap-flow/server/memserver"
)

// newTestConn builds a Conn backed by an in-memory session, draining
// the greeting so the caller can immediately feed command bytes.
func newTestConn(t *testing.T) *server.Conn {
	t.Helper()
	ms := memserver.New()
	ms.AddUser("alice", "secret")
	srv := ms.NewServer(server.WithAllowInsecureAuth(true))
	c, err := server.NewConn(srv)
	if err != nil {
		t.Fatalf("NewConn: %v", err)
	}
	return c
}

func progress(t *testing.T, c *server.Conn, line string) {
	t.Helper()
	if _, err := c.Progress([]byte(line + "\r\n")); err != nil {
		t.Fatalf("Progress(%q): %v", line, err)
	}
}

type recordingInterceptor struct {
	name   string
	order  *[]string
	before error
}

func (r *recordingInterceptor) Before(c *server.Conn, tag, name string) error {
	*r.order = append(*r.order, r.name+"-before")
	return r.before
}

func (r *recordingInterceptor) After(c *server.Conn, tag, name string, dur time.Duration, err error) {
	*r.order = append(*r.order, r.name+"-after")
}

func TestChain_Order(t *testing.T) {
	var order []string
	a := &recordingInterceptor{name: "a", order: &order}
	b := &recordingInterceptor{name: "b", order: &order}

	c := newTestConn(t)
	c.AddInterceptor(middleware.Chain(a, b))
	progress(t, c, "A001 NOOP")

	expected := []string{"a-before", "b-before", "b-after", "a-after"}
	if len(order) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, order)
	}
	for i, v := range expected {
		if order[i] != v {
			t.Fatalf("call %d: expected %q, got %q", i, v, order[i])
		}
	}
}

func TestLoggingInterceptor_DoesNotBlockCommand(t *testing.T) {
	c := newTestConn(t)
	c.AddInterceptor(middleware.Logging())
	progress(t, c, "A001 NOOP")
	if c.State().String() == "" {
		t.Fatal("expected a valid connection state after NOOP")
	}
}

func TestRecoveryLogger_LogsWithoutPanicking(t *testing.T) {
	c := newTestConn(t)
	c.AddInterceptor(middleware.Recovery())
	progress(t, c, "A001 NOOP")
}

func TestSlowCommandLogger_NoPanicOnFastCommand(t *testing.T) {
	c := newTestConn(t)
	c.AddInterceptor(middleware.Timeout(time.Hour))
	progress(t, c, "A001 NOOP")
}

