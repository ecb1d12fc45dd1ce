package client

import (
	"testing"

	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/flow"
)

// pump feeds input into the client once, then drains Progress(nil)
// until it needs more bytes or the session closes, collecting every
// write and event observed along the way.
func pump(t *testing.T, c *Client, input []byte) (writes [][]byte, events []flow.Event) {
	t.Helper()
	first := true
	for {
		var in []byte
		if first {
			in = input
			first = false
		}
		res, err := c.Progress(in)
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		switch res.Outcome {
		case flow.OutcomeEvent:
			events = append(events, res.Event)
		case flow.OutcomeNeedWrite:
			writes = append(writes, res.Write)
		case flow.OutcomeNeedRead, flow.OutcomeIdle, flow.OutcomeClosed:
			return writes, events
		}
	}
}

func TestGreetingAppliesCapabilities(t *testing.T) {
	c := New()
	pump(t, c, []byte("* OK [CAPABILITY IMAP4rev1 IDLE LITERAL+] ready\r\n"))

	if !c.HasCap(imap.CapIdle) {
		t.Fatal("expected IDLE capability from greeting")
	}
	if c.State() != imap.ConnStateNotAuthenticated {
		t.Fatalf("state = %s, want NotAuthenticated", c.State())
	}
}

func TestPreauthGreetingTransitionsToAuthenticated(t *testing.T) {
	c := New()
	pump(t, c, []byte("* PREAUTH ready\r\n"))

	if c.State() != imap.ConnStateAuthenticated {
		t.Fatalf("state = %s, want Authenticated", c.State())
	}
}

func TestLoginTransitionsToAuthenticated(t *testing.T) {
	c := New()
	pump(t, c, []byte("* OK ready\r\n"))

	r, err := c.Login("user", "pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	writes, _ := pump(t, c, nil)
	if len(writes) != 1 {
		t.Fatalf("got %d writes, want 1", len(writes))
	}

	_, events := pump(t, c, []byte("A1 OK LOGIN completed\r\n"))
	if len(events) != 1 || events[0].Kind != flow.CommandCompleted {
		t.Fatalf("events = %+v, want one CommandCompleted", events)
	}

	if c.State() != imap.ConnStateAuthenticated {
		t.Fatalf("state = %s, want Authenticated", c.State())
	}
	if !r.Done || r.Status.Kind != "OK" {
		t.Fatalf("result = %+v, want Done with OK status", r)
	}
}

func TestIdleRejectedLeavesStateUnchanged(t *testing.T) {
	c := New()
	pump(t, c, []byte("* OK ready\r\n"))
	loginAndAdvance(t, c)

	r, err := c.Idle()
	if err != nil {
		t.Fatalf("Idle: %v", err)
	}
	pump(t, c, nil) // drain the IDLE command write

	_, events := pump(t, c, []byte("A2 BAD idle not allowed\r\n"))
	if len(events) != 1 || events[0].Kind != flow.CommandRejected {
		t.Fatalf("events = %+v, want one CommandRejected", events)
	}
	if !r.Done || r.Status.Kind != "BAD" {
		t.Fatalf("result = %+v, want Done with BAD status", r)
	}
}

func TestSelectPopulatesMailboxStatus(t *testing.T) {
	c := New()
	pump(t, c, []byte("* OK ready\r\n"))
	loginAndAdvance(t, c)

	_, err := c.Select("INBOX", nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	pump(t, c, nil) // drain the SELECT command write

	pump(t, c, []byte(
		"* 172 EXISTS\r\n" +
			"* 1 RECENT\r\n" +
			"* FLAGS (\\Answered \\Flagged \\Deleted \\Seen \\Draft)\r\n" +
			"A2 OK [READ-WRITE] SELECT completed\r\n",
	))

	if c.State() != imap.ConnStateSelected {
		t.Fatalf("state = %s, want Selected", c.State())
	}
	mb := c.Mailbox()
	if mb == nil {
		t.Fatal("Mailbox() = nil after SELECT")
	}
	if mb.NumMessages != 172 {
		t.Errorf("NumMessages = %d, want 172", mb.NumMessages)
	}
	if mb.NumRecent != 1 {
		t.Errorf("NumRecent = %d, want 1", mb.NumRecent)
	}
	if len(mb.Flags) != 5 {
		t.Errorf("Flags = %v, want 5 flags", mb.Flags)
	}
}

func TestSearchAccumulatesSequenceNumbers(t *testing.T) {
	c := New()
	pump(t, c, []byte("* OK ready\r\n"))
	loginAndAdvance(t, c)
	selectInbox(t, c)

	r, err := c.Search("UNSEEN")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	pump(t, c, nil) // drain the SEARCH command write

	pump(t, c, []byte("* SEARCH 2 3 5\r\n" + "A3 OK SEARCH completed\r\n"))

	if len(r.SearchNums) != 3 || r.SearchNums[0] != 2 || r.SearchNums[2] != 5 {
		t.Errorf("SearchNums = %v, want [2 3 5]", r.SearchNums)
	}
}

func TestAppendUIDParsedFromResponseCode(t *testing.T) {
	c := New()
	pump(t, c, []byte("* OK [CAPABILITY IMAP4rev1 LITERAL+ UIDPLUS] ready\r\n"))
	loginAndAdvance(t, c)

	r, err := c.Append("INBOX", []imap.Flag{imap.FlagSeen}, []byte("hi"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	pump(t, c, nil) // command line with non-sync literal is written in one shot under LITERAL+

	pump(t, c, []byte("A2 OK [APPENDUID 38505 3955] APPEND completed\r\n"))

	if !r.Done || r.Append == nil {
		t.Fatalf("result = %+v, want Done with Append data", r)
	}
	if r.Append.UIDValidity != 38505 || uint32(r.Append.UID) != 3955 {
		t.Errorf("Append = %+v, want UIDValidity 38505 UID 3955", r.Append)
	}
}

func loginAndAdvance(t *testing.T, c *Client) {
	t.Helper()
	if _, err := c.Login("user", "pass"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	pump(t, c, nil)
	pump(t, c, []byte("A1 OK LOGIN completed\r\n"))
}

func selectInbox(t *testing.T, c *Client) {
	t.Helper()
	if _, err := c.Select("INBOX", nil); err != nil {
		t.Fatalf("Select: %v", err)
	}
	pump(t, c, nil)
	pump(t, c, []byte("A2 OK [READ-WRITE] SELECT completed\r\n"))
}
