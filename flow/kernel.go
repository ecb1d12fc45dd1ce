// Package flow implements the sans-I/O Flow Kernel: the state machine
// that reconciles IMAP's three idiosyncratic protocol flows (literal
// handling, AUTHENTICATE, IDLE) with strict ordering guarantees, on
// top of the wire package's framing and codec.
package flow

import (
	"strings"

	"github.com/meszmate/imap-flow/wire"
)

type priorityKind int

const (
	priorityNone priorityKind = iota
	priorityAuthResponse
	priorityIdleDone
	priorityContinuationRequest
)

// Kernel is the shared state machine that both Client and Server
// specialize (spec.md §2, §4.3). It owns no threads and performs no
// I/O: Progress is the only entry point that moves it forward.
type Kernel struct {
	side Side
	opts *Options

	recv *ReceiveBuffer
	send *SendQueue

	handles handleGen
	tags    *tagGenerator

	mode      Mode
	authState authState
	idleState idleState

	// pendingByTag/tagByHandle correlate a client command's tag with
	// the handle returned at enqueue time, so the eventual tagged
	// completion can be matched back to it.
	pendingByTag map[string]Handle
	tagByHandle  map[Handle]string

	hasAuthHandle   bool
	authHandle      Handle
	authCancelPending bool
	// serverAuthTag is the tag of the AUTHENTICATE command the server
	// is currently processing, used to detect the tagged completion
	// that ends Authenticating mode.
	serverAuthTag string

	hasIdleHandle bool
	idleHandle    Handle
	// serverIdleTag is the tag of the IDLE command the server is
	// currently processing.
	serverIdleTag string
	hasIdleAcceptHandle bool
	idleAcceptHandle    Handle

	// literalWaiting/literalWaitHandle track outbound suspension at a
	// literal boundary awaiting a peer continuation (client side).
	literalWaiting    bool
	literalWaitHandle Handle

	greetingReceived  bool // client
	greetingSent      bool // server
	hasGreetingHandle bool
	greetingHandle    Handle

	// priorityWrite/priorityKind hold a one-shot write that bypasses
	// the ordinary SendQueue FIFO: a server's synthesized continuation
	// request for an inbound literal, or a client's AUTHENTICATE
	// response / IDLE DONE line (spec.md §4.3.1/§4.3.2/§4.3.3).
	priorityWrite []byte
	priorityKind  priorityKind

	events []Event
	closed bool
}

// NewClient constructs a client-side Kernel. opts may be nil to use
// DefaultOptions.
func NewClient(opts *Options) *Kernel {
	return newKernel(ClientSide, opts)
}

// NewServer constructs a server-side Kernel. opts may be nil to use
// DefaultOptions.
func NewServer(opts *Options) *Kernel {
	return newKernel(ServerSide, opts)
}

func newKernel(side Side, opts *Options) *Kernel {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Kernel{
		side:         side,
		opts:         opts,
		recv:         NewReceiveBuffer(opts.CRLFRelaxed, opts.MaxLiteralSize, opts.MaxFrameSize),
		send:         NewSendQueue(),
		tags:         newTagGenerator("A"),
		pendingByTag: make(map[string]Handle),
		tagByHandle:  make(map[Handle]string),
	}
}

// Side reports which half of a session this Kernel drives.
func (k *Kernel) Side() Side { return k.side }

// Mode reports the kernel's current outer substate.
func (k *Kernel) Mode() Mode { return k.mode }

// Closed reports whether the session has closed.
func (k *Kernel) Closed() bool { return k.closed }

// EnqueueCommand (client-side) appends a command to the send queue
// and returns its Handle. The tag is generated by the kernel (tag
// generation policy beyond uniqueness is out of scope per spec.md §1).
func (k *Kernel) EnqueueCommand(name string, args ...wire.Arg) (Handle, error) {
	if k.side != ClientSide {
		return 0, newError(ErrInvalidInMode, "EnqueueCommand is client-only")
	}
	if k.closed {
		return 0, newError(ErrConnectionClosed, "session closed")
	}
	if k.mode == ModeAuthenticating {
		return 0, newError(ErrInvalidInMode, "cannot enqueue a command while authenticating")
	}

	tag := k.tags.Next()
	h := k.handles.next_()
	msg := wire.NewCommand(tag, name, args...)
	if err := k.send.Enqueue(h, msg); err != nil {
		return 0, wrapError(ErrMalformedMessage, "serialize command", err)
	}
	k.pendingByTag[tag] = h
	k.tagByHandle[h] = tag

	switch strings.ToUpper(name) {
	case "AUTHENTICATE":
		k.authHandle = h
		k.hasAuthHandle = true
		k.authState = authIdle
		k.authCancelPending = false
	case "IDLE":
		k.idleHandle = h
		k.hasIdleHandle = true
		k.idleState = idleInactive
	}
	return h, nil
}

// EnqueueResponse (server-side) appends a fully-built response message
// to the send queue and returns its Handle. Building AUTHENTICATE
// challenges and the IDLE-accepting continuation should go through
// SendAuthenticateChallenge/AcceptIdle instead so the kernel can arm
// the matching mode transition.
func (k *Kernel) EnqueueResponse(msg *wire.Message) (Handle, error) {
	if k.side != ServerSide {
		return 0, newError(ErrInvalidInMode, "EnqueueResponse is server-only")
	}
	if k.closed {
		return 0, newError(ErrConnectionClosed, "session closed")
	}
	h := k.handles.next_()
	if err := k.send.Enqueue(h, msg); err != nil {
		return 0, wrapError(ErrMalformedMessage, "serialize response", err)
	}
	if !k.greetingSent && !k.hasGreetingHandle && msg.Kind == wire.KindStatus && msg.Tag == "" {
		k.greetingHandle = h
		k.hasGreetingHandle = true
	}
	return h, nil
}

// Discard removes a queued-but-not-yet-dispatched command/response by
// handle and reports it as CommandRejected{Discarded}.
func (k *Kernel) Discard(h Handle) error {
	if k.closed {
		return newError(ErrConnectionClosed, "session closed")
	}
	if !k.send.Discard(h) {
		return newError(ErrUnknownHandle, "handle not found or already in flight")
	}
	if tag, ok := k.tagByHandle[h]; ok {
		delete(k.tagByHandle, h)
		delete(k.pendingByTag, tag)
	}
	k.events = append(k.events, Event{Kind: CommandRejected, Handle: h, Status: &ImapStatus{Kind: StatusDiscarded}})
	return nil
}

// Close flushes all pending handles as CommandRejected{ConnectionClosed}
// and schedules the terminal ConnectionClosed event. Safe to call more
// than once.
func (k *Kernel) Close() {
	if k.closed {
		return
	}
	for _, h := range k.send.DiscardAll() {
		k.events = append(k.events, Event{Kind: CommandRejected, Handle: h, Status: &ImapStatus{Kind: StatusConnectionClosed}})
	}
	k.events = append(k.events, Event{Kind: ConnectionClosed})
}

// Progress is the single step function a driving layer calls
// repeatedly (spec.md §4.4/§5). input carries any newly-arrived
// inbound bytes (pass nil if none arrived since the last call).
func (k *Kernel) Progress(input []byte) (ProgressResult, error) {
	if k.closed {
		return ProgressResult{Outcome: OutcomeClosed}, nil
	}
	if len(input) > 0 {
		k.recv.Extend(input)
	}

	if ev, ok := k.popEvent(); ok {
		return ProgressResult{Outcome: OutcomeEvent, Event: ev}, nil
	}

	if fatal := k.receiveStep(); fatal != nil {
		k.fail(fatal)
		ev, _ := k.popEvent()
		return ProgressResult{Outcome: OutcomeEvent, Event: ev}, nil
	}
	if ev, ok := k.popEvent(); ok {
		return ProgressResult{Outcome: OutcomeEvent, Event: ev}, nil
	}

	if data, ok := k.writeStep(); ok {
		return ProgressResult{Outcome: OutcomeNeedWrite, Write: data}, nil
	}
	if ev, ok := k.popEvent(); ok {
		return ProgressResult{Outcome: OutcomeEvent, Event: ev}, nil
	}

	if k.mode == ModeIdling && k.idleState == idleAccepted && k.side == ServerSide {
		// Streaming unsolicited data: the server has nothing queued
		// and isn't waiting on the client, so it's idle rather than
		// blocked on a read.
		return ProgressResult{Outcome: OutcomeIdle}, nil
	}
	return ProgressResult{Outcome: OutcomeNeedRead}, nil
}

func (k *Kernel) popEvent() (Event, bool) {
	if len(k.events) == 0 {
		return Event{}, false
	}
	ev := k.events[0]
	k.events = k.events[1:]
	if ev.Kind == ConnectionClosed {
		k.closed = true
	}
	return ev, true
}

func (k *Kernel) fail(err *Error) {
	for _, h := range k.send.DiscardAll() {
		k.events = append(k.events, Event{Kind: CommandRejected, Handle: h, Status: &ImapStatus{Kind: StatusConnectionClosed}})
	}
	k.events = append(k.events, Event{Kind: ConnectionClosed, Err: err})
}

// wantsRawLine reports whether the next inbound line must be read
// verbatim instead of through command/response grammar: a server
// awaiting an AUTHENTICATE response line, or awaiting the IDLE DONE
// terminator.
func (k *Kernel) wantsRawLine() bool {
	if k.side != ServerSide {
		return false
	}
	if k.mode == ModeAuthenticating && k.authState == authChallenging {
		return true
	}
	if k.mode == ModeIdling && k.idleState == idleAccepted {
		return true
	}
	return false
}

func (k *Kernel) receiveStep() *Error {
	if k.wantsRawLine() {
		outcome, raw, _, err := k.recv.TryNextRaw()
		if err != nil {
			return classifyWireError(err)
		}
		switch outcome {
		case RecvMessage:
			line := strings.TrimRight(string(raw), "\r\n")
			if k.mode == ModeAuthenticating {
				k.serverHandleAuthLine(line)
			} else {
				k.serverHandleIdleLine(line)
			}
		}
		return nil
	}

	outcome, msg, ann, err := k.recv.TryNext()
	if err != nil {
		return classifyWireError(err)
	}
	switch outcome {
	case RecvLiteral:
		k.reactToInboundLiteral(ann)
	case RecvMessage:
		if k.side == ClientSide {
			return k.handleInboundClient(msg)
		}
		return k.handleInboundServer(msg)
	}
	return nil
}

func classifyWireError(err error) *Error {
	switch err.(type) {
	case *wire.ErrLiteralTooLarge:
		return wrapError(ErrLiteralTooLarge, "inbound literal exceeded max_literal_size", err)
	case *wire.ErrFrameTooLarge:
		return wrapError(ErrFrameTooLarge, "receive buffer exceeded its safety cap", err)
	case *wire.ErrMalformed:
		return wrapError(ErrMalformedMessage, "malformed message", err)
	default:
		return wrapError(ErrMalformedMessage, "parse error", err)
	}
}

func (k *Kernel) handleInboundClient(msg *wire.Message) *Error {
	if !k.greetingReceived {
		k.greetingReceived = true
		k.events = append(k.events, Event{Kind: GreetingReceived, Message: msg})
		return nil
	}

	if msg.Kind == wire.KindContinuation {
		return k.handleInboundContinuationClient(msg)
	}

	k.events = append(k.events, Event{Kind: Data, Message: msg})
	if msg.Kind == wire.KindStatus && msg.Tag != "" {
		if k.literalWaiting && k.tagByHandle[k.literalWaitHandle] == msg.Tag {
			k.rejectGatedCommand(&ImapStatus{Kind: string(msg.Status), Text: msg.Text, Code: msg.Code, CodeText: msg.CodeText})
		} else {
			k.completeClientCommand(msg)
		}
	}
	return nil
}

func (k *Kernel) handleInboundContinuationClient(msg *wire.Message) *Error {
	if k.literalWaiting {
		k.literalWaiting = false
		k.literalWaitHandle = 0
		k.send.PromoteFragment()
		return nil
	}
	if k.mode == ModeAuthenticating && (k.authState == authSent || k.authState == authContinuing) {
		k.clientHandleAuthContinuation(msg)
		return nil
	}
	if k.mode == ModeIdling && k.idleState == idleSent {
		k.idleState = idleAccepted
		k.events = append(k.events, Event{Kind: IdleAccepted, Handle: k.idleHandle, Message: msg})
		return nil
	}
	return newError(ErrUnexpectedContinuation, "continuation response with nothing awaiting it")
}

func (k *Kernel) completeClientCommand(msg *wire.Message) {
	h, ok := k.pendingByTag[msg.Tag]
	if !ok {
		return
	}
	delete(k.pendingByTag, msg.Tag)
	delete(k.tagByHandle, h)

	status := &ImapStatus{Kind: string(msg.Status), Text: msg.Text, Code: msg.Code, CodeText: msg.CodeText}

	if k.hasIdleHandle && h == k.idleHandle && k.idleState != idleAccepted && k.idleState != idleDoneSent {
		// Tagged completion arrived before the server ever sent the
		// continuation accepting IDLE (e.g. IDLE isn't supported).
		k.mode = ModeNormal
		k.idleState = idleInactive
		k.hasIdleHandle = false
		k.events = append(k.events, Event{Kind: IdleRejected, Handle: h, Status: status})
		return
	}

	k.events = append(k.events, Event{Kind: CommandCompleted, Handle: h, Status: status})

	if k.hasAuthHandle && h == k.authHandle {
		k.mode = ModeNormal
		k.authState = authDone
		k.hasAuthHandle = false
	}
	if k.hasIdleHandle && h == k.idleHandle {
		k.mode = ModeNormal
		k.idleState = idleInactive
		k.hasIdleHandle = false
	}
}

func (k *Kernel) handleInboundServer(msg *wire.Message) *Error {
	if msg.Kind != wire.KindCommand {
		return newError(ErrMalformedMessage, "expected a client command")
	}

	k.events = append(k.events, Event{Kind: CommandReceived, Message: msg})

	switch strings.ToUpper(msg.Name) {
	case "AUTHENTICATE":
		k.mode = ModeAuthenticating
		k.authState = authSent
		k.serverAuthTag = msg.Tag
		k.events = append(k.events, Event{Kind: AuthenticateStarted, Message: msg})
	case "IDLE":
		k.mode = ModeIdling
		k.idleState = idleSent
		k.serverIdleTag = msg.Tag
		k.events = append(k.events, Event{Kind: IdleStarted, Message: msg})
	}
	return nil
}

func (k *Kernel) onEntrySent(h Handle, msg *wire.Message) {
	if k.side == ClientSide {
		k.events = append(k.events, Event{Kind: CommandSent, Handle: h})
		if k.hasAuthHandle && h == k.authHandle && k.authState == authIdle {
			k.authState = authSent
			k.mode = ModeAuthenticating
		}
		if k.hasIdleHandle && h == k.idleHandle && k.idleState == idleInactive {
			k.idleState = idleSent
			k.mode = ModeIdling
		}
		return
	}

	if k.hasGreetingHandle && h == k.greetingHandle {
		k.greetingSent = true
		k.hasGreetingHandle = false
		k.events = append(k.events, Event{Kind: GreetingSent, Handle: h})
		return
	}

	k.events = append(k.events, Event{Kind: ResponseSent, Handle: h})
	if k.hasIdleAcceptHandle && h == k.idleAcceptHandle {
		k.idleState = idleAccepted
		k.hasIdleAcceptHandle = false
	}
	if msg != nil && msg.Kind == wire.KindStatus && msg.Tag != "" {
		if k.mode == ModeAuthenticating && msg.Tag == k.serverAuthTag {
			k.mode = ModeNormal
			k.authState = authDone
			k.serverAuthTag = ""
		}
		if k.mode == ModeIdling && msg.Tag == k.serverIdleTag {
			k.mode = ModeNormal
			k.idleState = idleInactive
			k.serverIdleTag = ""
		}
	}
}

func (k *Kernel) writeStep() ([]byte, bool) {
	if len(k.priorityWrite) > 0 {
		data := k.priorityWrite
		k.priorityWrite = nil
		switch k.priorityKind {
		case priorityIdleDone:
			k.events = append(k.events, Event{Kind: IdleDoneSent, Handle: k.idleHandle})
		}
		k.priorityKind = priorityNone
		return data, true
	}

	if k.side == ClientSide && (k.mode == ModeAuthenticating || k.mode == ModeIdling) {
		// A client's ordinary traffic is held behind the active
		// sub-flow; only priority writes (handled above) may proceed.
		// The server keeps writing: its challenges, the IDLE
		// continuation, unsolicited data and the tagged completion.
		return nil, false
	}

	view, ok := k.send.Head()
	if !ok || k.literalWaiting {
		return nil, false
	}
	if len(view.Data) == 0 {
		if view.IsLastFragment {
			h, msg, _ := k.send.CompleteHead()
			k.onEntrySent(h, msg)
		}
		return nil, false
	}

	data := view.Data
	k.send.Advance(len(data))

	if view.EndsInLiteralHeader {
		if k.canProceedPastLiteral(view.LiteralNonSync) {
			k.send.PromoteFragment()
		} else {
			k.literalWaiting = true
			k.literalWaitHandle = view.Handle
		}
		return data, true
	}

	if view.IsLastFragment {
		h, msg, _ := k.send.CompleteHead()
		k.onEntrySent(h, msg)
	}
	return data, true
}

// rejectGatedCommand discards the outbound entry currently suspended
// at a literal boundary (spec.md §4.3.1: a tagged BAD/NO arrived while
// awaiting a continuation).
func (k *Kernel) rejectGatedCommand(status *ImapStatus) {
	if !k.literalWaiting {
		return
	}
	h, _, ok := k.send.RejectHead()
	if !ok {
		return
	}
	k.literalWaiting = false
	k.literalWaitHandle = 0
	if tag, ok := k.tagByHandle[h]; ok {
		delete(k.tagByHandle, h)
		delete(k.pendingByTag, tag)
	}
	k.events = append(k.events, Event{Kind: CommandRejected, Handle: h, Status: status})
}
