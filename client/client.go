// Package client implements the client side of an IMAP4rev1 session on
// top of a sans-I/O flow.Kernel: it consumes bytes handed to it and
// produces bytes to write, never touching a net.Conn itself. Callers
// own the I/O loop.
package client

import (
	"strconv"
	"strings"
	"sync"

	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/flow"
	"github.com/meszmate/imap-flow/state"
	"github.com/meszmate/imap-flow/wire"
)

// Client drives the client side of an IMAP4rev1 connection. It has no
// I/O of its own: Progress consumes bytes read off the wire and
// returns either an Event to handle, bytes to write, or an outcome
// asking the caller to read more or do nothing.
type Client struct {
	kernel *flow.Kernel
	state  *state.Machine
	opts   *Options

	mu      sync.Mutex
	caps    *imap.CapSet
	mailbox *MailboxStatus

	pendingOrder []flow.Handle
	results      map[flow.Handle]*CommandResult

	auth       *authExchange
	extensions *ExtensionHandlers
}

// MailboxStatus mirrors the currently selected mailbox, assembled from
// SELECT/EXAMINE's data plus subsequent unsolicited EXISTS/RECENT/
// FLAGS/EXPUNGE updates.
type MailboxStatus struct {
	Name string
	imap.SelectData
}

// CommandResult accumulates everything observed between a command's
// enqueue and its tagged completion.
type CommandResult struct {
	Handle Handle
	Name   string
	Done   bool
	Status *flow.ImapStatus

	Data          []*wire.Message
	FetchMessages []*imap.FetchMessageBuffer
	SearchNums    []uint32
	ListData      []*imap.ListData
	StatusData    *imap.StatusData
	Caps          *imap.CapSet
	Append        *imap.AppendData
	Copy          *imap.CopyData
}

// Handle re-exports flow.Handle so callers driving the protocol don't
// need to import the flow package themselves for routine use.
type Handle = flow.Handle

// New creates a Client ready to drive a fresh connection. The caller
// must still feed it the bytes of the server's greeting via Progress
// before issuing commands.
func New(opts ...Option) *Client {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	caps := imap.NewCapSet()
	c := &Client{
		opts:    o,
		state:   state.New(imap.ConnStateNotAuthenticated),
		caps:    caps,
		results: make(map[flow.Handle]*CommandResult),
		auth:    newAuthExchange(),
	}
	c.kernel = flow.NewClient(o.flowOptions(caps))
	return c
}

// State returns the current connection state.
func (c *Client) State() imap.ConnState {
	return c.state.State()
}

// Caps returns a snapshot of the server's advertised capabilities.
func (c *Client) Caps() *imap.CapSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caps.Clone()
}

// HasCap reports whether the server advertises the given capability.
func (c *Client) HasCap(cap imap.Cap) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caps.Has(cap)
}

// Mailbox returns the currently selected mailbox's cached status, or
// nil when no mailbox is selected.
func (c *Client) Mailbox() *MailboxStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mailbox == nil {
		return nil
	}
	m := *c.mailbox
	return &m
}

// Closed reports whether the session has closed.
func (c *Client) Closed() bool {
	return c.kernel.Closed()
}

// Progress feeds input (may be empty) into the kernel and returns the
// resulting outcome, updating cached client state from any observed
// event before returning it to the caller.
func (c *Client) Progress(input []byte) (flow.ProgressResult, error) {
	res, err := c.kernel.Progress(input)
	if err != nil {
		return res, err
	}
	if res.Outcome == flow.OutcomeEvent {
		c.dispatch(res.Event)
	}
	return res, nil
}

// Result returns the accumulated result for a command handle. ok is
// false if the handle is unknown (never issued, or already discarded
// internally).
func (c *Client) Result(h Handle) (*CommandResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.results[h]
	return r, ok
}

// enqueue issues a command and begins tracking its result.
func (c *Client) enqueue(name string, args ...wire.Arg) (*CommandResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, err := c.kernel.EnqueueCommand(name, args...)
	if err != nil {
		return nil, err
	}
	r := &CommandResult{Handle: h, Name: strings.ToUpper(name)}
	c.results[h] = r
	c.pendingOrder = append(c.pendingOrder, h)
	return r, nil
}

// enqueueAtoms enqueues a command whose arguments are plain atoms.
func (c *Client) enqueueAtoms(name string, atoms ...string) (*CommandResult, error) {
	args := make([]wire.Arg, len(atoms))
	for i, a := range atoms {
		args[i] = wire.ArgAtom(a)
	}
	return c.enqueue(name, args...)
}

// currentDataHandle returns the oldest still-pending command, the one
// untagged data between commands is attributed to.
func (c *Client) currentDataHandle() (Handle, bool) {
	if len(c.pendingOrder) == 0 {
		return 0, false
	}
	return c.pendingOrder[0], true
}

func (c *Client) popPending(h Handle) {
	for i, ph := range c.pendingOrder {
		if ph == h {
			c.pendingOrder = append(c.pendingOrder[:i], c.pendingOrder[i+1:]...)
			return
		}
	}
}

func (c *Client) dispatch(ev flow.Event) {
	switch ev.Kind {
	case flow.GreetingReceived:
		c.handleGreeting(ev.Message)
	case flow.Data:
		c.handleData(ev.Message)
	case flow.CommandCompleted:
		c.handleCompleted(ev.Handle, ev.Status)
	case flow.CommandRejected:
		c.handleCompleted(ev.Handle, ev.Status)
	case flow.AuthenticateContinuationRequest:
		c.handleAuthChallenge(ev.Handle, ev.AuthData)
	case flow.IdleAccepted, flow.IdleRejected:
		c.handleIdleOutcome(ev.Kind, ev.Handle, ev.Status)
	}
}

func (c *Client) handleGreeting(msg *wire.Message) {
	if msg == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.Status {
	case imap.StatusResponseTypePREAUTH:
		c.state.Transition(imap.ConnStateAuthenticated)
	case imap.StatusResponseTypeBYE:
		c.kernel.Close()
	}
	if msg.Code == imap.ResponseCodeCapability {
		c.applyCapabilityText(msg.CodeText)
	}
}

func (c *Client) handleData(msg *wire.Message) {
	if msg == nil {
		return
	}
	c.mu.Lock()
	h, hasPending := c.currentDataHandle()
	c.mu.Unlock()

	var target *CommandResult
	if hasPending {
		if r, ok := c.Result(h); ok {
			target = r
		}
	}

	switch msg.Kind {
	case wire.KindStatus:
		// Untagged status response (e.g. "* OK [ALERT] ...", "* BYE ...").
		if msg.Status == imap.StatusResponseTypeBYE {
			return
		}
		if msg.Code == imap.ResponseCodeCapability {
			c.mu.Lock()
			c.applyCapabilityText(msg.CodeText)
			c.mu.Unlock()
		}
		if target != nil {
			target.Data = append(target.Data, msg)
		}
		return
	case wire.KindData:
		c.handleNamedData(msg, target)
	}
}

func (c *Client) handleNamedData(msg *wire.Message, target *CommandResult) {
	switch msg.Name {
	case "CAPABILITY":
		c.mu.Lock()
		caps := make([]imap.Cap, len(msg.Args))
		for i, a := range msg.Args {
			caps[i] = imap.Cap(strings.ToUpper(argText(a)))
		}
		c.caps.ReplaceAll(caps...)
		if target != nil {
			target.Caps = c.caps.Clone()
		}
		c.mu.Unlock()
	case "EXISTS":
		c.updateMailbox(func(m *MailboxStatus) {
			if msg.Num != nil {
				m.NumMessages = *msg.Num
			}
		})
		if h := c.opts.UnilateralDataHandler; h != nil && h.Exists != nil && msg.Num != nil {
			h.Exists(*msg.Num)
		}
	case "RECENT":
		c.updateMailbox(func(m *MailboxStatus) {
			if msg.Num != nil {
				m.NumRecent = *msg.Num
			}
		})
		if h := c.opts.UnilateralDataHandler; h != nil && h.Recent != nil && msg.Num != nil {
			h.Recent(*msg.Num)
		}
	case "EXPUNGE":
		if h := c.opts.UnilateralDataHandler; h != nil && h.Expunge != nil && msg.Num != nil {
			h.Expunge(*msg.Num)
		}
	case "FLAGS":
		if len(msg.Args) == 1 {
			flags := parseFlags(msg.Args[0])
			c.updateMailbox(func(m *MailboxStatus) { m.Flags = flags })
		}
	case "SEARCH":
		if target != nil {
			for _, a := range msg.Args {
				if n, err := strconv.ParseUint(argText(a), 10, 32); err == nil {
					target.SearchNums = append(target.SearchNums, uint32(n))
				}
			}
		}
	case "FETCH":
		if msg.Num != nil && len(msg.Args) == 1 && msg.Args[0].IsList {
			fm := parseFetchMessage(*msg.Num, msg.Args[0].List)
			if target != nil {
				target.FetchMessages = append(target.FetchMessages, fm)
			}
			if h := c.opts.UnilateralDataHandler; h != nil && h.Fetch != nil {
				h.Fetch(fm)
			}
		}
	case "LIST", "LSUB":
		if target != nil {
			if ld := parseListData(msg); ld != nil {
				target.ListData = append(target.ListData, ld)
			}
		}
	case "STATUS":
		if target != nil {
			target.StatusData = parseStatusData(msg)
		}
	default:
		if c.extensions != nil {
			if h, ok := c.extensions.Response[msg.Name]; ok {
				h(msg)
				return
			}
		}
		if target != nil {
			target.Data = append(target.Data, msg)
		}
	}
}

func (c *Client) updateMailbox(fn func(*MailboxStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mailbox == nil {
		c.mailbox = &MailboxStatus{}
	}
	fn(c.mailbox)
	if h := c.opts.UnilateralDataHandler; h != nil && h.Mailbox != nil {
		m := *c.mailbox
		h.Mailbox(&m)
	}
}

func (c *Client) handleCompleted(h Handle, status *flow.ImapStatus) {
	c.mu.Lock()
	r, ok := c.results[h]
	if ok {
		r.Status = status
		r.Done = true
	}
	name := ""
	if ok {
		name = r.Name
	}
	c.popPending(h)
	c.mu.Unlock()

	if !ok || status == nil || status.Kind != string(imap.StatusResponseTypeOK) {
		return
	}
	switch name {
	case "LOGIN", "AUTHENTICATE":
		c.state.Transition(imap.ConnStateAuthenticated)
	case "SELECT", "EXAMINE":
		c.state.Transition(imap.ConnStateSelected)
	case "CLOSE", "UNSELECT":
		c.mu.Lock()
		c.mailbox = nil
		c.mu.Unlock()
		c.state.Transition(imap.ConnStateAuthenticated)
	case "LOGOUT":
		c.state.Transition(imap.ConnStateLogout)
	case "UNAUTHENTICATE":
		c.state.Transition(imap.ConnStateNotAuthenticated)
	case "APPEND":
		if status.Code == imap.ResponseCodeAppendUID {
			r.Append = parseAppendUID(status.CodeText)
		}
	case "COPY", "UID COPY", "MOVE", "UID MOVE":
		if status.Code == imap.ResponseCodeCopyUID {
			r.Copy = parseCopyUID(status.CodeText)
		}
	}
}

func parseAppendUID(codeText string) *imap.AppendData {
	parts := strings.Fields(codeText)
	if len(parts) < 2 {
		return nil
	}
	data := &imap.AppendData{}
	if v, err := strconv.ParseUint(parts[0], 10, 32); err == nil {
		data.UIDValidity = uint32(v)
	}
	if v, err := strconv.ParseUint(parts[1], 10, 32); err == nil {
		data.UID = imap.UID(v)
	}
	return data
}

func parseCopyUID(codeText string) *imap.CopyData {
	parts := strings.Fields(codeText)
	if len(parts) < 3 {
		return nil
	}
	data := &imap.CopyData{}
	if v, err := strconv.ParseUint(parts[0], 10, 32); err == nil {
		data.UIDValidity = uint32(v)
	}
	if set, err := imap.ParseUIDSet(parts[1]); err == nil {
		data.SourceUIDs = *set
	}
	if set, err := imap.ParseUIDSet(parts[2]); err == nil {
		data.DestUIDs = *set
	}
	return data
}

// applyCapabilityText replaces the cached capability set from a
// space-separated capability list (as carried by a CAPABILITY
// response code or the CAPABILITY data response). Caller holds c.mu.
func (c *Client) applyCapabilityText(text string) {
	fields := strings.Fields(text)
	caps := make([]imap.Cap, len(fields))
	for i, f := range fields {
		caps[i] = imap.Cap(strings.ToUpper(f))
	}
	c.caps.ReplaceAll(caps...)
}

func parseListData(msg *wire.Message) *imap.ListData {
	if len(msg.Args) < 3 {
		return nil
	}
	ld := &imap.ListData{Mailbox: argText(msg.Args[2])}
	if msg.Args[0].IsList {
		for _, a := range msg.Args[0].List {
			ld.Attrs = append(ld.Attrs, imap.MailboxAttr(argText(a)))
		}
	}
	if d := argText(msg.Args[1]); d != "" {
		ld.Delim = []rune(d)[0]
	}
	return ld
}

func parseStatusData(msg *wire.Message) *imap.StatusData {
	if len(msg.Args) < 2 || !msg.Args[1].IsList {
		return nil
	}
	sd := &imap.StatusData{Mailbox: argText(msg.Args[0])}
	items := msg.Args[1].List
	for i := 0; i+1 < len(items); i += 2 {
		name := strings.ToUpper(argText(items[i]))
		val := argText(items[i+1])
		switch name {
		case "MESSAGES":
			if n, err := strconv.ParseUint(val, 10, 32); err == nil {
				v := uint32(n)
				sd.NumMessages = &v
			}
		case "UIDNEXT":
			if n, err := strconv.ParseUint(val, 10, 32); err == nil {
				v := uint32(n)
				sd.UIDNext = &v
			}
		case "UIDVALIDITY":
			if n, err := strconv.ParseUint(val, 10, 32); err == nil {
				v := uint32(n)
				sd.UIDValidity = &v
			}
		case "UNSEEN":
			if n, err := strconv.ParseUint(val, 10, 32); err == nil {
				v := uint32(n)
				sd.NumUnseen = &v
			}
		case "RECENT":
			if n, err := strconv.ParseUint(val, 10, 32); err == nil {
				v := uint32(n)
				sd.NumRecent = &v
			}
		case "HIGHESTMODSEQ":
			if n, err := strconv.ParseUint(val, 10, 64); err == nil {
				sd.HighestModSeq = &n
			}
		}
	}
	return sd
}
