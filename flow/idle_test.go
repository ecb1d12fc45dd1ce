package flow

import "testing"

func TestSetIdleDoneRejectsBeforeAccepted(t *testing.T) {
	c := NewClient(nil)
	pump(t, c, []byte("* OK ready\r\n"))
	h, _ := c.EnqueueCommand("IDLE")
	pump(t, c, nil) // command line written, but no continuation yet

	if err := c.SetIdleDone(h); err == nil {
		t.Fatal("expected an error before the server accepts IDLE")
	}
}

func TestSetIdleDoneRejectsWrongHandle(t *testing.T) {
	c := NewClient(nil)
	pump(t, c, []byte("* OK ready\r\n"))
	h, _ := c.EnqueueCommand("IDLE")
	pump(t, c, nil)
	pump(t, c, []byte("+ idling\r\n"))

	if err := c.SetIdleDone(h + 1); err == nil {
		t.Fatal("expected an error for a handle that isn't the active IDLE")
	}
}

func TestAcceptIdleRequiresIdlingMode(t *testing.T) {
	s := NewServer(nil)
	if _, err := s.AcceptIdle("idling"); err == nil {
		t.Fatal("expected an error outside of an IDLE command")
	}
}

func TestServerAcceptIdleArmsStreaming(t *testing.T) {
	s := NewServer(nil)
	_, events := pump(t, s, []byte("A1 IDLE\r\n"))
	if len(events) != 2 || events[0].Kind != CommandReceived || events[1].Kind != IdleStarted {
		t.Fatalf("events = %+v, want [CommandReceived, IdleStarted]", kindsOf(events))
	}

	if _, err := s.AcceptIdle("idling"); err != nil {
		t.Fatalf("AcceptIdle: %v", err)
	}
	writes, _ := pump(t, s, nil)
	if string(joined(writes)) != "+ idling\r\n" {
		t.Fatalf("writes = %q, want the IDLE acceptance continuation", writes)
	}
	if s.Mode() != ModeIdling {
		t.Fatalf("Mode() = %v, want ModeIdling", s.Mode())
	}

	_, events = pump(t, s, []byte("DONE\r\n"))
	if len(events) != 1 || events[0].Kind != IdleDone {
		t.Fatalf("events = %+v, want one IdleDone", kindsOf(events))
	}
}

func TestServerIdleDoneIsCaseInsensitive(t *testing.T) {
	s := NewServer(nil)
	pump(t, s, []byte("A1 IDLE\r\n"))
	s.AcceptIdle("idling")
	pump(t, s, nil)

	_, events := pump(t, s, []byte("done\r\n"))
	if len(events) != 1 || events[0].Kind != IdleDone {
		t.Fatalf("events = %+v, want one IdleDone for a lowercase done", kindsOf(events))
	}
}
