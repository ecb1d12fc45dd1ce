package flow

import (
	"testing"

	"github.com/meszmate/imap-flow/wire"
)

func TestSetAuthenticateDataRejectsWrongHandle(t *testing.T) {
	c := NewClient(nil)
	pump(t, c, []byte("* OK ready\r\n"))
	h, _ := c.EnqueueCommand("AUTHENTICATE", wire.ArgAtom("PLAIN"))
	pump(t, c, nil)
	pump(t, c, []byte("+ \r\n"))

	if err := c.SetAuthenticateData(h+1, []byte("x")); err == nil {
		t.Fatal("expected an error for a handle that isn't the active AUTHENTICATE")
	}
}

func TestSetAuthenticateDataRejectsWhenNotChallenging(t *testing.T) {
	c := NewClient(nil)
	pump(t, c, []byte("* OK ready\r\n"))
	h, _ := c.EnqueueCommand("AUTHENTICATE", wire.ArgAtom("PLAIN"))

	if err := c.SetAuthenticateData(h, []byte("x")); err == nil {
		t.Fatal("expected an error before a challenge has been requested")
	}
}

func TestCancelAuthenticateBeforeChallengeArmsCancellation(t *testing.T) {
	c := NewClient(nil)
	pump(t, c, []byte("* OK ready\r\n"))
	h, _ := c.EnqueueCommand("AUTHENTICATE", wire.ArgAtom("PLAIN"))
	pump(t, c, nil) // send the command line

	if err := c.CancelAuthenticate(h); err != nil {
		t.Fatalf("CancelAuthenticate: %v", err)
	}

	writes, events := pump(t, c, []byte("+ \r\n"))
	if len(events) != 0 {
		t.Fatalf("a pending cancellation should not surface AuthenticateContinuationRequest: %+v", kindsOf(events))
	}
	if string(joined(writes)) != "*\r\n" {
		t.Fatalf("writes = %q, want the bare cancel line", writes)
	}
}

func TestCancelAuthenticateDuringChallengeSendsStar(t *testing.T) {
	c := NewClient(nil)
	pump(t, c, []byte("* OK ready\r\n"))
	h, _ := c.EnqueueCommand("AUTHENTICATE", wire.ArgAtom("PLAIN"))
	pump(t, c, nil)
	pump(t, c, []byte("+ \r\n")) // now challenging

	if err := c.CancelAuthenticate(h); err != nil {
		t.Fatalf("CancelAuthenticate: %v", err)
	}
	writes, _ := pump(t, c, nil)
	if string(joined(writes)) != "*\r\n" {
		t.Fatalf("writes = %q, want [\"*\\r\\n\"]", writes)
	}
}

func TestServerAuthChallengeAndRawLineExchange(t *testing.T) {
	s := NewServer(nil)
	_, events := pump(t, s, []byte("A1 AUTHENTICATE PLAIN\r\n"))
	if len(events) != 2 || events[0].Kind != CommandReceived || events[1].Kind != AuthenticateStarted {
		t.Fatalf("events = %+v, want [CommandReceived, AuthenticateStarted]", kindsOf(events))
	}

	if _, err := s.SendAuthenticateChallenge(nil); err != nil {
		t.Fatalf("SendAuthenticateChallenge: %v", err)
	}
	writes, _ := pump(t, s, nil)
	if string(joined(writes)) != "+ \r\n" {
		t.Fatalf("writes = %q, want a bare continuation challenge", writes)
	}

	_, events = pump(t, s, []byte("dXAAdXAAcHc=\r\n"))
	if len(events) != 1 || events[0].Kind != AuthenticateUpdated {
		t.Fatalf("events = %+v, want one AuthenticateUpdated", kindsOf(events))
	}
}

func TestServerAuthCancelLineIsRecognized(t *testing.T) {
	s := NewServer(nil)
	pump(t, s, []byte("A1 AUTHENTICATE PLAIN\r\n"))
	s.SendAuthenticateChallenge(nil)
	pump(t, s, nil)

	_, events := pump(t, s, []byte("*\r\n"))
	if len(events) != 1 || events[0].Kind != AuthenticateUpdated || events[0].AuthData != nil {
		t.Fatalf("events = %+v, want one AuthenticateUpdated with nil AuthData", events)
	}
}

func TestSendAuthenticateChallengeRequiresAuthenticatingMode(t *testing.T) {
	s := NewServer(nil)
	if _, err := s.SendAuthenticateChallenge(nil); err == nil {
		t.Fatal("expected an error outside of an AUTHENTICATE exchange")
	}
}
