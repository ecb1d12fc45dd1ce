package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/auth"
	"github.com/meszmate/imap-flow/flow"
	"github.com/meszmate/imap-flow/state"
	"github.com/meszmate/imap-flow/wire"
)

// Conn drives a single IMAP4rev1 connection over a sans-I/O flow.Kernel.
// Like flow.Kernel itself, Conn performs no I/O and owns no goroutine:
// the caller's driving loop reads
// bytes off a net.Conn, hands them to Progress, and writes whatever
// bytes come back. This mirrors client.Client on the other half of the
// wire.
type Conn struct {
	kernel *flow.Kernel
	state  *state.Machine
	enc    *ResponseEncoder
	srv    *Server
	logger zerolog.Logger

	session Session
	tracker *SessionTracker

	mu              sync.Mutex
	enabled         *imap.CapSet
	isTLS           bool
	startTLSPending bool
	mailbox         string
	readOnly        bool
	closed          bool
	idling          bool

	// pendingAuthTag/pendingAuthArgs capture the command that produced
	// CommandReceived so the following AuthenticateStarted event (which
	// carries no Message of its own) can pick up the mechanism name and
	// any inline initial response.
	pendingAuthTag  string
	pendingAuthArgs []wire.Arg
	authMech        auth.ServerMechanism

	// pendingIdleTag mirrors the same correlation for IDLE.
	pendingIdleTag string

	interceptors []CommandInterceptor
}

// CommandInterceptor observes commands as Conn dispatches them, for
// cross-cutting concerns (logging, metrics, rate limiting, recovery)
// that don't belong in the per-command handlers themselves. Before
// runs ahead of the command switch; returning a non-nil error skips
// the command entirely and replies with that error instead. After
// always runs once the command (or the skipped reply) has finished,
// even when Before rejected it.
type CommandInterceptor interface {
	Before(c *Conn, tag, name string) error
	After(c *Conn, tag, name string, dur time.Duration, err error)
}

// newConn creates a connection bound to srv. The caller must still
// call writeGreeting (NewConn does) and drain the resulting bytes
// before reading client input.
func newConn(srv *Server) *Conn {
	caps := srv.options.Caps.Clone()
	kernel := flow.NewServer(srv.options.flowOptions(caps))
	c := &Conn{
		kernel:  kernel,
		state:   state.New(imap.ConnStateNotAuthenticated),
		enc:     NewResponseEncoder(kernel),
		srv:     srv,
		logger:  srv.options.Logger,
		enabled: imap.NewCapSet(),
		tracker: NewSessionTracker(),
	}
	return c
}

// NewConn is the exported constructor driving loops use to start a
// fresh connection against srv. A new Session is obtained from the
// Server's NewSession factory, and the greeting is enqueued.
func NewConn(srv *Server) (*Conn, error) {
	c := newConn(srv)
	if srv.options.NewSession != nil {
		session, err := srv.options.NewSession(c)
		if err != nil {
			return nil, err
		}
		c.session = session
	}
	c.writeGreeting()
	return c, nil
}

func (c *Conn) writeGreeting() {
	_, _ = c.kernel.EnqueueResponse(wire.NewStatus("", imap.StatusResponseTypeOK, "", "", c.srv.options.GreetingText))
}

// Progress feeds input (may be empty) into the kernel, dispatching any
// resulting event before returning the ProgressResult to the caller.
func (c *Conn) Progress(input []byte) (flow.ProgressResult, error) {
	res, err := c.kernel.Progress(input)
	if err != nil {
		return res, err
	}
	if res.Outcome == flow.OutcomeEvent {
		c.dispatch(res.Event)
	}
	return res, nil
}

// State returns the current connection state.
func (c *Conn) State() imap.ConnState { return c.state.State() }

// Enabled returns the capabilities ENABLEd on this connection.
func (c *Conn) Enabled() *imap.CapSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// IsTLS reports whether the connection has completed a TLS handshake.
func (c *Conn) IsTLS() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isTLS
}

// MarkTLS records that the driving loop has completed the TLS
// handshake requested by a prior STARTTLS. The caller must construct a
// fresh Conn afterwards only if it needs a fresh capability
// negotiation round-trip; this server design instead just flips the
// flag, matching how Capabilities recomputes STARTTLS/LOGINDISABLED
// per call.
func (c *Conn) MarkTLS() {
	c.mu.Lock()
	c.isTLS = true
	c.startTLSPending = false
	c.mu.Unlock()
}

// StartTLSPending reports whether a STARTTLS command was just accepted
// and the driving loop still needs to perform the handshake and call
// MarkTLS before resuming Progress with any further input.
func (c *Conn) StartTLSPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startTLSPending
}

// Mailbox returns the currently selected mailbox name, or "" if none.
func (c *Conn) Mailbox() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mailbox
}

// IsReadOnly reports whether the selected mailbox was opened read-only.
func (c *Conn) IsReadOnly() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readOnly
}

// Closed reports whether the session has closed.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Session returns the backend session bound to this connection.
func (c *Conn) Session() Session { return c.session }

// Server returns the owning Server.
func (c *Conn) Server() *Server { return c.srv }

// Tracker returns the connection's SessionTracker, used to deliver
// unsolicited mailbox updates during IDLE/poll.
func (c *Conn) Tracker() *SessionTracker { return c.tracker }

// Logger returns the connection's structured logger.
func (c *Conn) Logger() zerolog.Logger { return c.logger }

// AddInterceptor registers ic to observe every command Conn
// dispatches from this point on, outermost-registered-first.
func (c *Conn) AddInterceptor(ic CommandInterceptor) {
	c.interceptors = append(c.interceptors, ic)
}

func (c *Conn) setMailbox(name string, readOnly bool) {
	c.mu.Lock()
	c.mailbox = name
	c.readOnly = readOnly
	c.mu.Unlock()
}

func (c *Conn) clearMailbox() {
	c.mu.Lock()
	c.mailbox = ""
	c.readOnly = false
	c.mu.Unlock()
	c.tracker.Unselect()
}

// reply enqueues a tagged completion status.
func (c *Conn) reply(tag string, status imap.StatusResponseType, code imap.ResponseCode, codeText, text string) {
	_, _ = c.kernel.EnqueueResponse(wire.NewStatus(tag, status, code, codeText, text))
}

// replyErr enqueues the tagged completion implied by err: an
// *imap.IMAPError carries its own status/code/text, anything else
// becomes a generic tagged NO.
func (c *Conn) replyErr(tag string, err error) {
	if ierr, ok := err.(*imap.IMAPError); ok {
		c.reply(tag, ierr.Type, ierr.Code, codeTextOf(ierr.CodeArg), ierr.Text)
		return
	}
	c.reply(tag, imap.StatusResponseTypeNO, "", "", err.Error())
}

func codeTextOf(arg interface{}) string {
	if arg == nil {
		return ""
	}
	return fmt.Sprintf("%v", arg)
}

// untagged enqueues an untagged status response, e.g. "* OK [UIDVALIDITY 1] ...".
func (c *Conn) untagged(status imap.StatusResponseType, code imap.ResponseCode, codeText, text string) {
	_, _ = c.kernel.EnqueueResponse(wire.NewStatus("", status, code, codeText, text))
}

// dispatch routes a single flow.Event to its handler.
func (c *Conn) dispatch(ev flow.Event) {
	switch ev.Kind {
	case flow.CommandReceived:
		c.handleCommand(ev.Message)
	case flow.AuthenticateStarted:
		c.handleAuthenticateStarted()
	case flow.AuthenticateUpdated:
		c.handleAuthenticateUpdated(ev.AuthData)
	case flow.IdleStarted:
		c.handleIdleStarted()
	case flow.IdleDone:
		c.handleIdleDone()
	case flow.ConnectionClosed:
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		if c.session != nil {
			_ = c.session.Close()
		}
	}
}

// handleCommand implements the per-command semantics that used to live
// in server/commands/*.go's dispatcher-invoked handlers, now as one
// big switch driven off the already-parsed wire.Message instead of a
// live wire.Decoder.
func (c *Conn) handleCommand(msg *wire.Message) {
	tag := msg.Tag
	name := strings.ToUpper(msg.Name)
	args := msg.Args
	kind := NumKindSeq

	if name == "UID" {
		if len(args) == 0 {
			c.reply(tag, imap.StatusResponseTypeBAD, "", "", "UID requires a subcommand")
			return
		}
		name = strings.ToUpper(argText(args[0]))
		args = args[1:]
		kind = NumKindUID
	}

	start := time.Now()
	var cmdErr error
	for _, ic := range c.interceptors {
		if err := ic.Before(c, tag, name); err != nil {
			cmdErr = err
			c.replyErr(tag, err)
			for _, ic := range c.interceptors {
				ic.After(c, tag, name, time.Since(start), cmdErr)
			}
			return
		}
	}
	defer func() {
		if r := recover(); r != nil {
			cmdErr = fmt.Errorf("internal error handling %s: %v", name, r)
			c.reply(tag, imap.StatusResponseTypeNO, "", "", "internal server error")
		}
		for _, ic := range c.interceptors {
			ic.After(c, tag, name, time.Since(start), cmdErr)
		}
	}()

	// AUTHENTICATE/IDLE: the kernel's handleInboundServer has already
	// switched Mode for these; real handling happens at the following
	// AuthenticateStarted/IdleStarted event, which carries no Message
	// of its own, so stash what we need here.
	switch name {
	case "AUTHENTICATE":
		c.pendingAuthTag = tag
		c.pendingAuthArgs = args
		return
	case "IDLE":
		c.pendingIdleTag = tag
		return
	}

	if allowed := state.CommandAllowedStates(name); len(allowed) > 0 {
		ok := false
		for _, s := range allowed {
			if s == c.state.State() {
				ok = true
				break
			}
		}
		if !ok {
			cmdErr = fmt.Errorf("%s not allowed in state %s", name, c.state.State().String())
			c.reply(tag, imap.StatusResponseTypeBAD, "", "", cmdErr.Error())
			return
		}
	}

	cur := newArgCursor(args)

	switch name {
	case "CAPABILITY":
		c.cmdCapability(tag)
	case "NOOP":
		c.reply(tag, imap.StatusResponseTypeOK, "", "", "NOOP completed")
	case "LOGOUT":
		c.untagged(imap.StatusResponseTypeBYE, "", "", "logging out")
		_ = c.state.Transition(imap.ConnStateLogout)
		c.reply(tag, imap.StatusResponseTypeOK, "", "", "LOGOUT completed")
	case "STARTTLS":
		c.cmdStartTLS(tag)
	case "LOGIN":
		c.cmdLogin(tag, cur)
	case "ENABLE":
		c.cmdEnable(tag, cur)
	case "SELECT":
		c.cmdSelect(tag, cur, false)
	case "EXAMINE":
		c.cmdSelect(tag, cur, true)
	case "CREATE":
		c.cmdCreate(tag, cur)
	case "DELETE":
		c.cmdDelete(tag, cur)
	case "RENAME":
		c.cmdRename(tag, cur)
	case "SUBSCRIBE":
		c.cmdSubscribe(tag, cur)
	case "UNSUBSCRIBE":
		c.cmdUnsubscribe(tag, cur)
	case "LIST":
		c.cmdList(tag, cur, false)
	case "LSUB":
		c.cmdList(tag, cur, true)
	case "STATUS":
		c.cmdStatus(tag, cur)
	case "APPEND":
		c.cmdAppend(tag, cur)
	case "CLOSE":
		c.cmdClose(tag, true)
	case "UNSELECT":
		c.cmdClose(tag, false)
	case "EXPUNGE":
		c.cmdExpunge(tag, cur)
	case "SEARCH":
		c.cmdSearch(tag, cur, kind)
	case "FETCH":
		c.cmdFetch(tag, cur, kind)
	case "STORE":
		c.cmdStore(tag, cur, kind)
	case "COPY":
		c.cmdCopy(tag, cur, kind)
	case "MOVE":
		c.cmdMove(tag, cur, kind)
	case "NAMESPACE":
		c.cmdNamespace(tag)
	default:
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "unknown command "+name)
	}
}

func (c *Conn) cmdCapability(tag string) {
	caps := c.srv.Capabilities(c)
	args := make([]wire.Arg, len(caps))
	for i, cp := range caps {
		args[i] = wire.ArgAtom(string(cp))
	}
	_, _ = c.kernel.EnqueueResponse(wire.NewData(nil, "CAPABILITY", args...))
	c.reply(tag, imap.StatusResponseTypeOK, "", "", "CAPABILITY completed")
}

func (c *Conn) cmdStartTLS(tag string) {
	if c.IsTLS() {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "already using TLS")
		return
	}
	if !c.srv.options.EnableStartTLS {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "STARTTLS not supported")
		return
	}
	// The handshake itself is the driving loop's job: it observes
	// StartTLSPending after
	// flushing this OK, performs tls.Server(...).Handshake(), and calls
	// MarkTLS before resuming Progress with post-handshake bytes.
	c.mu.Lock()
	c.startTLSPending = true
	c.mu.Unlock()
	c.reply(tag, imap.StatusResponseTypeOK, "", "", "begin TLS negotiation now")
}

func (c *Conn) cmdLogin(tag string, cur *argCursor) {
	if !c.IsTLS() && !c.srv.options.AllowInsecureAuth {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "LOGIN disabled before TLS")
		return
	}
	username, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing username")
		return
	}
	password, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing password")
		return
	}
	if err := c.session.Login(username, password); err != nil {
		c.replyErr(tag, err)
		return
	}
	_ = c.state.Transition(imap.ConnStateAuthenticated)
	c.reply(tag, imap.StatusResponseTypeOK, "", "", "LOGIN completed")
}

func (c *Conn) cmdEnable(tag string, cur *argCursor) {
	var enabledNow []string
	for !cur.done() {
		name, err := cur.atom()
		if err != nil {
			break
		}
		cp := imap.Cap(strings.ToUpper(name))
		if c.srv.Capabilities(c) != nil {
			for _, avail := range c.srv.Capabilities(c) {
				if strings.EqualFold(string(avail), string(cp)) {
					c.enabled.Add(cp)
					enabledNow = append(enabledNow, string(cp))
					break
				}
			}
		}
	}
	if len(enabledNow) > 0 {
		eargs := make([]wire.Arg, len(enabledNow))
		for i, e := range enabledNow {
			eargs[i] = wire.ArgAtom(e)
		}
		_, _ = c.kernel.EnqueueResponse(wire.NewData(nil, "ENABLED", eargs...))
	}
	c.reply(tag, imap.StatusResponseTypeOK, "", "", "ENABLE completed")
}

func (c *Conn) cmdSelect(tag string, cur *argCursor, readOnly bool) {
	mailbox, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing mailbox name")
		return
	}
	data, err := c.session.Select(mailbox, &imap.SelectOptions{ReadOnly: readOnly})
	if err != nil {
		c.replyErr(tag, err)
		return
	}

	flagArgs := make([]wire.Arg, len(data.Flags))
	for i, f := range data.Flags {
		flagArgs[i] = wire.ArgAtom(string(f))
	}
	_, _ = c.kernel.EnqueueResponse(wire.NewData(nil, "FLAGS", wire.ArgList(flagArgs...)))
	n := data.NumMessages
	_, _ = c.kernel.EnqueueResponse(wire.NewData(&n, "EXISTS"))
	r := data.NumRecent
	_, _ = c.kernel.EnqueueResponse(wire.NewData(&r, "RECENT"))
	c.untagged(imap.StatusResponseTypeOK, imap.ResponseCodeUIDValidity, fmt.Sprintf("%d", data.UIDValidity), "")
	c.untagged(imap.StatusResponseTypeOK, imap.ResponseCodeUIDNext, fmt.Sprintf("%d", uint32(data.UIDNext)), "")
	if len(data.PermanentFlags) > 0 {
		names := make([]string, len(data.PermanentFlags))
		for i, f := range data.PermanentFlags {
			names[i] = string(f)
		}
		c.untagged(imap.StatusResponseTypeOK, imap.ResponseCodePermanentFlags, "("+strings.Join(names, " ")+")", "")
	}
	if data.FirstUnseen > 0 {
		c.untagged(imap.StatusResponseTypeOK, imap.ResponseCodeUnseen, fmt.Sprintf("%d", data.FirstUnseen), "")
	}
	if data.HighestModSeq > 0 {
		c.untagged(imap.StatusResponseTypeOK, imap.ResponseCodeHighestModSeq, fmt.Sprintf("%d", data.HighestModSeq), "")
	}

	c.setMailbox(mailbox, data.ReadOnly)
	_ = c.state.Transition(imap.ConnStateSelected)

	code := imap.ResponseCodeReadWrite
	if data.ReadOnly {
		code = imap.ResponseCodeReadOnly
	}
	verb := "SELECT"
	if readOnly {
		verb = "EXAMINE"
	}
	c.reply(tag, imap.StatusResponseTypeOK, code, "", verb+" completed")
}

func (c *Conn) cmdCreate(tag string, cur *argCursor) {
	mailbox, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing mailbox name")
		return
	}
	if err := c.session.Create(mailbox, &imap.CreateOptions{}); err != nil {
		c.replyErr(tag, err)
		return
	}
	c.reply(tag, imap.StatusResponseTypeOK, "", "", "CREATE completed")
}

func (c *Conn) cmdDelete(tag string, cur *argCursor) {
	mailbox, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing mailbox name")
		return
	}
	if err := c.session.Delete(mailbox); err != nil {
		c.replyErr(tag, err)
		return
	}
	c.reply(tag, imap.StatusResponseTypeOK, "", "", "DELETE completed")
}

func (c *Conn) cmdRename(tag string, cur *argCursor) {
	oldName, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing mailbox name")
		return
	}
	newName, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing new mailbox name")
		return
	}
	if err := c.session.Rename(oldName, newName); err != nil {
		c.replyErr(tag, err)
		return
	}
	c.reply(tag, imap.StatusResponseTypeOK, "", "", "RENAME completed")
}

func (c *Conn) cmdSubscribe(tag string, cur *argCursor) {
	mailbox, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing mailbox name")
		return
	}
	if err := c.session.Subscribe(mailbox); err != nil {
		c.replyErr(tag, err)
		return
	}
	c.reply(tag, imap.StatusResponseTypeOK, "", "", "SUBSCRIBE completed")
}

func (c *Conn) cmdUnsubscribe(tag string, cur *argCursor) {
	mailbox, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing mailbox name")
		return
	}
	if err := c.session.Unsubscribe(mailbox); err != nil {
		c.replyErr(tag, err)
		return
	}
	c.reply(tag, imap.StatusResponseTypeOK, "", "", "UNSUBSCRIBE completed")
}

func (c *Conn) cmdList(tag string, cur *argCursor, lsub bool) {
	ref, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing reference name")
		return
	}
	pattern, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing mailbox pattern")
		return
	}
	options := &imap.ListOptions{}
	if lsub {
		options.SelectSubscribed = true
	}
	w := NewListWriter(c.enc)
	if err := c.session.List(w, ref, []string{pattern}, options); err != nil {
		c.replyErr(tag, err)
		return
	}
	verb := "LIST"
	if lsub {
		verb = "LSUB"
	}
	c.reply(tag, imap.StatusResponseTypeOK, "", "", verb+" completed")
}

func (c *Conn) cmdStatus(tag string, cur *argCursor) {
	mailbox, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing mailbox name")
		return
	}
	items, err := cur.list()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing status item list")
		return
	}
	options := parseStatusOptions(items)
	data, err := c.session.Status(mailbox, options)
	if err != nil {
		c.replyErr(tag, err)
		return
	}
	w := NewListWriter(c.enc)
	w.writeStatus(mailbox, data)
	c.reply(tag, imap.StatusResponseTypeOK, "", "", "STATUS completed")
}

// cmdAppend implements APPEND directly over the already-parsed Arg
// tree: since wire.Parse fully materializes a literal's bytes into the
// matching Arg before the command ever reaches CommandReceived, there
// is no live decoder to stream the literal body from (the way
// commands/append.go's readLiteralSize/streaming read did); the
// literal is simply the first Arg carrying Literal data.
func (c *Conn) cmdAppend(tag string, cur *argCursor) {
	mailbox, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing mailbox name")
		return
	}
	options := &imap.AppendOptions{}
	if a, ok := cur.peek(); ok && a.IsList {
		cur.pos++
		options.Flags = parseFlagsArg(a)
	}
	if a, ok := cur.peek(); ok && a.Literal == nil && !a.IsList {
		cur.pos++
		// date-time string; parsing is best-effort and non-fatal.
	}
	a, ok := cur.next()
	if !ok || a.Literal == nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing message literal")
		return
	}
	r := imap.LiteralReader{Reader: bytes.NewReader(a.Literal.Data), Size: int64(len(a.Literal.Data))}
	data, err := c.session.Append(mailbox, r, options)
	if err != nil {
		c.replyErr(tag, err)
		return
	}
	if data != nil && data.UIDValidity > 0 && data.UID > 0 {
		c.reply(tag, imap.StatusResponseTypeOK, imap.ResponseCodeAppendUID,
			fmt.Sprintf("%d %d", data.UIDValidity, uint32(data.UID)), "APPEND completed")
		return
	}
	c.reply(tag, imap.StatusResponseTypeOK, "", "", "APPEND completed")
}

func (c *Conn) cmdClose(tag string, expunge bool) {
	if expunge {
		w := NewExpungeWriter(c.enc)
		_ = c.session.Expunge(w, nil)
	}
	if err := c.session.Unselect(); err != nil {
		c.replyErr(tag, err)
		return
	}
	c.clearMailbox()
	_ = c.state.Transition(imap.ConnStateAuthenticated)
	verb := "CLOSE"
	if !expunge {
		verb = "UNSELECT"
	}
	c.reply(tag, imap.StatusResponseTypeOK, "", "", verb+" completed")
}

func (c *Conn) cmdExpunge(tag string, cur *argCursor) {
	var uids *imap.UIDSet
	if a, ok := cur.peek(); ok && !a.IsList {
		if s, err := cur.atom(); err == nil {
			if parsed, err := imap.ParseUIDSet(s); err == nil {
				uids = parsed
			}
		}
	}
	w := NewExpungeWriter(c.enc)
	if err := c.session.Expunge(w, uids); err != nil {
		c.replyErr(tag, err)
		return
	}
	c.reply(tag, imap.StatusResponseTypeOK, "", "", "EXPUNGE completed")
}

func (c *Conn) cmdSearch(tag string, cur *argCursor, kind NumKind) {
	// Skip an optional CHARSET specifier; charset-aware matching is the
	// Session implementation's concern, not the wire layer's.
	if a, ok := cur.peek(); ok && !a.IsList && strings.EqualFold(argText(a), "CHARSET") {
		cur.pos++
		cur.pos++ // the charset name itself
	}
	criteria, err := parseSearchCriteria(cur)
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "invalid search criteria")
		return
	}
	data, err := c.session.Search(kind, criteria, &imap.SearchOptions{})
	if err != nil {
		c.replyErr(tag, err)
		return
	}
	name := "SEARCH"
	var args []wire.Arg
	if kind == NumKindUID {
		for _, uid := range data.AllUIDs {
			args = append(args, wire.ArgAtom(fmt.Sprintf("%d", uint32(uid))))
		}
	} else {
		for _, n := range data.AllSeqNums {
			args = append(args, wire.ArgAtom(fmt.Sprintf("%d", n)))
		}
	}
	_, _ = c.kernel.EnqueueResponse(wire.NewData(nil, name, args...))
	c.reply(tag, imap.StatusResponseTypeOK, "", "", "SEARCH completed")
}

func (c *Conn) cmdFetch(tag string, cur *argCursor, kind NumKind) {
	seqStr, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing sequence set")
		return
	}
	numSet, err := parseNumSet(seqStr, kind)
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "invalid sequence set")
		return
	}
	itemsArg, ok := cur.next()
	if !ok {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing fetch items")
		return
	}
	options, err := parseFetchOptions(itemsArg, cur)
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "invalid fetch items")
		return
	}
	if kind == NumKindUID {
		options.UID = true
	}
	w := NewFetchWriter(c.enc)
	w.SetUIDOnly(kind == NumKindUID)
	if err := c.session.Fetch(w, numSet, options); err != nil {
		c.replyErr(tag, err)
		return
	}
	verb := "FETCH"
	if kind == NumKindUID {
		verb = "UID FETCH"
	}
	c.reply(tag, imap.StatusResponseTypeOK, "", "", verb+" completed")
}

func (c *Conn) cmdStore(tag string, cur *argCursor, kind NumKind) {
	seqStr, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing sequence set")
		return
	}
	numSet, err := parseNumSet(seqStr, kind)
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "invalid sequence set")
		return
	}
	action, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing store action")
		return
	}
	flagsArg, err := cur.list()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing flag list")
		return
	}
	storeFlags, err := parseStoreFlags(action, wire.Arg{List: flagsArg, IsList: true})
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", err.Error())
		return
	}
	w := NewFetchWriter(c.enc)
	w.SetUIDOnly(kind == NumKindUID)
	if err := c.session.Store(w, numSet, storeFlags, &imap.StoreOptions{}); err != nil {
		c.replyErr(tag, err)
		return
	}
	verb := "STORE"
	if kind == NumKindUID {
		verb = "UID STORE"
	}
	c.reply(tag, imap.StatusResponseTypeOK, "", "", verb+" completed")
}

func (c *Conn) cmdCopy(tag string, cur *argCursor, kind NumKind) {
	seqStr, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing sequence set")
		return
	}
	numSet, err := parseNumSet(seqStr, kind)
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "invalid sequence set")
		return
	}
	dest, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing destination mailbox")
		return
	}
	data, err := c.session.Copy(numSet, dest)
	if err != nil {
		c.replyErr(tag, err)
		return
	}
	verb := "COPY"
	if kind == NumKindUID {
		verb = "UID COPY"
	}
	if data != nil && data.UIDValidity > 0 {
		c.reply(tag, imap.StatusResponseTypeOK, imap.ResponseCodeCopyUID,
			fmt.Sprintf("%d %s %s", data.UIDValidity, data.SourceUIDs.String(), data.DestUIDs.String()), verb+" completed")
		return
	}
	c.reply(tag, imap.StatusResponseTypeOK, "", "", verb+" completed")
}

func (c *Conn) cmdMove(tag string, cur *argCursor, kind NumKind) {
	mover, ok := c.session.(SessionMove)
	if !ok {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "MOVE not supported")
		return
	}
	seqStr, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing sequence set")
		return
	}
	numSet, err := parseNumSet(seqStr, kind)
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "invalid sequence set")
		return
	}
	dest, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing destination mailbox")
		return
	}
	w := NewMoveWriter(c.enc)
	w.SetUIDOnly(kind == NumKindUID)
	if err := mover.Move(w, numSet, dest); err != nil {
		c.replyErr(tag, err)
		return
	}
	verb := "MOVE"
	if kind == NumKindUID {
		verb = "UID MOVE"
	}
	if data := w.CopyData(); data != nil && data.UIDValidity > 0 {
		c.reply(tag, imap.StatusResponseTypeOK, imap.ResponseCodeCopyUID,
			fmt.Sprintf("%d %s %s", data.UIDValidity, data.SourceUIDs.String(), data.DestUIDs.String()), verb+" completed")
		return
	}
	c.reply(tag, imap.StatusResponseTypeOK, "", "", verb+" completed")
}

func (c *Conn) cmdNamespace(tag string) {
	ns, ok := c.session.(SessionNamespace)
	if !ok {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "NAMESPACE not supported")
		return
	}
	data, err := ns.Namespace()
	if err != nil {
		c.replyErr(tag, err)
		return
	}
	_ = data // extended NAMESPACE arg rendering left to a future response writer
	c.reply(tag, imap.StatusResponseTypeOK, "", "", "NAMESPACE completed")
}

// handleAuthenticateStarted fires once per AUTHENTICATE command, right
// after the kernel has switched Mode to ModeAuthenticating. It selects
// the mechanism, feeds any inline initial response (RFC 4959), and
// otherwise prompts the client with an empty challenge.
func (c *Conn) handleAuthenticateStarted() {
	tag := c.pendingAuthTag
	cur := newArgCursor(c.pendingAuthArgs)
	mechName, err := cur.atom()
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "missing SASL mechanism name")
		return
	}

	authenticator := auth.AuthenticatorFunc(func(_ context.Context, mechanism, identity string, credentials []byte) error {
		return c.session.Login(identity, string(credentials))
	})
	mech, err := auth.DefaultRegistry.NewServerMechanism(mechName, authenticator)
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeNO, "", "", "unsupported mechanism "+mechName)
		return
	}
	c.authMech = mech

	var initial []byte
	hasInitial := false
	if a, ok := cur.peek(); ok {
		cur.pos++
		text := argText(a)
		if text != "=" {
			decoded, err := base64.StdEncoding.DecodeString(text)
			if err == nil {
				initial = decoded
				hasInitial = true
			}
		} else {
			hasInitial = true // empty initial response
		}
	}

	if hasInitial {
		c.stepAuth(tag, initial)
		return
	}
	if _, err := c.kernel.SendAuthenticateChallenge(nil); err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "cannot send challenge")
	}
}

func (c *Conn) handleAuthenticateUpdated(data []byte) {
	c.stepAuth(c.pendingAuthTag, data)
}

func (c *Conn) stepAuth(tag string, data []byte) {
	if c.authMech == nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "no authentication in progress")
		return
	}
	challenge, done, err := c.authMech.Next(data)
	if !done {
		if _, serr := c.kernel.SendAuthenticateChallenge(challenge); serr != nil {
			c.reply(tag, imap.StatusResponseTypeBAD, "", "", "cannot send challenge")
		}
		return
	}
	c.authMech = nil
	if err != nil {
		c.reply(tag, imap.StatusResponseTypeNO, "", "", "authentication failed")
		return
	}
	_ = c.state.Transition(imap.ConnStateAuthenticated)
	c.reply(tag, imap.StatusResponseTypeOK, "", "", "AUTHENTICATE completed")
}

// handleIdleStarted fires once per IDLE command. Rejecting it (tagged
// BAD, without ever calling AcceptIdle) lets the kernel's
// onEntrySent auto-transition back out of ModeIdling on its own, the
// same way any other rejected command would.
func (c *Conn) handleIdleStarted() {
	tag := c.pendingIdleTag
	if !capSetHas(c.srv.Capabilities(c), imap.CapIdle) {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "IDLE not supported")
		return
	}
	if _, err := c.kernel.AcceptIdle("idling"); err != nil {
		c.reply(tag, imap.StatusResponseTypeBAD, "", "", "cannot accept IDLE")
		return
	}
	c.mu.Lock()
	c.idling = true
	c.mu.Unlock()
	c.PollNow()
}

func (c *Conn) handleIdleDone() {
	c.mu.Lock()
	c.idling = false
	tag := c.pendingIdleTag
	c.mu.Unlock()
	c.reply(tag, imap.StatusResponseTypeOK, "", "", "IDLE completed")
}

// PollNow asks the Session for any pending mailbox updates and
// flushes them as unsolicited data. There is no background goroutine
// in this sans-I/O design; the driving loop calls PollNow on its own
// schedule (and Conn calls it once automatically on entering IDLE).
func (c *Conn) PollNow() {
	if c.session == nil {
		return
	}
	c.mu.Lock()
	idling := c.idling
	c.mu.Unlock()
	w := NewUpdateWriter(c.enc)
	_ = c.session.Poll(w, idling)
}

func capSetHas(caps []imap.Cap, target imap.Cap) bool {
	for _, cp := range caps {
		if cp == target {
			return true
		}
	}
	return false
}
