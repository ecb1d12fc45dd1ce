package flow

import (
	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/wire"
)

// EventKind discriminates the caller-visible events named in spec.md
// §4.3.4. Client and Server share one Event shape (mirroring
// wire.Message's Kind-discriminated style, the idiom this codebase
// already uses in place of Go's absent tagged unions) rather than two
// parallel type hierarchies.
type EventKind int

const (
	// GreetingReceived: client received the server's initial greeting.
	GreetingReceived EventKind = iota
	// GreetingSent: server's initial greeting has been written.
	GreetingSent
	// CommandSent: an enqueued command's final fragment was written.
	CommandSent
	// CommandReceived: server parsed a complete client command.
	CommandReceived
	// CommandRejected: an outbound entry was discarded before
	// completion (tagged BAD/NO while gating, explicit discard, or
	// connection close).
	CommandRejected
	// CommandCompleted: tagged completion (OK/NO/BAD) received/sent
	// for a handle.
	CommandCompleted
	// Data: an unsolicited or tagged response reached the caller.
	Data
	// AuthenticateStarted: server parsed an AUTHENTICATE command.
	AuthenticateStarted
	// AuthenticateContinuationRequest: client received a continuation
	// challenge during AUTHENTICATE.
	AuthenticateContinuationRequest
	// AuthenticateUpdated: server received a client continuation
	// response during AUTHENTICATE.
	AuthenticateUpdated
	// IdleAccepted: client's IDLE was accepted by a server continuation.
	IdleAccepted
	// IdleRejected: client's IDLE was rejected before continuation.
	IdleRejected
	// IdleStarted: server parsed an IDLE command.
	IdleStarted
	// IdleDoneSent: client wrote the DONE terminator.
	IdleDoneSent
	// IdleDone: server received the DONE terminator.
	IdleDone
	// ResponseSent: an enqueued server response's final fragment was
	// written.
	ResponseSent
	// ContinuationReceived: a continuation response/request arrived
	// outside of literal gating or AUTHENTICATE (reported verbatim so
	// the caller can observe it).
	ContinuationReceived
	// ConnectionClosed: the session has closed; no further progress
	// is possible.
	ConnectionClosed
)

// Event is the single caller-visible event shape. Only the fields
// relevant to Kind are populated.
type Event struct {
	Kind EventKind

	// Handle correlates to the enqueue call (CommandSent,
	// CommandRejected, CommandCompleted, AuthenticateContinuationRequest,
	// IdleAccepted, IdleRejected, IdleDoneSent, ResponseSent).
	Handle Handle

	// Status carries the tagged completion/rejection status
	// (CommandCompleted, CommandRejected, IdleRejected).
	Status *ImapStatus

	// Message carries the full parsed response/command (Data,
	// CommandReceived).
	Message *wire.Message

	// AuthData carries the raw (already base64-decoded) challenge or
	// response payload (AuthenticateContinuationRequest,
	// AuthenticateUpdated).
	AuthData []byte

	// Err carries the fatal error that produced ConnectionClosed, if any.
	Err error
}

// ImapStatus is the minimal status summary attached to completion and
// rejection events; Kind mirrors imap.StatusResponseType's values
// ("OK", "NO", "BAD", "BYE") plus the flow-local rejection reasons
// that never appear on the wire (Discarded, ConnectionClosed).
type ImapStatus struct {
	Kind string
	Text string

	// Code and CodeText carry the optional response code and its
	// argument text (e.g. Code="APPENDUID", CodeText="1 55"); unset
	// for the flow-local rejection reasons that never appear on the wire.
	Code     imap.ResponseCode
	CodeText string
}

const (
	StatusDiscarded        = "Discarded"
	StatusConnectionClosed = "ConnectionClosed"
)

// Outcome is the result of a single Kernel.Progress call.
type Outcome int

const (
	// OutcomeEvent: ProgressResult.Event is populated.
	OutcomeEvent Outcome = iota
	// OutcomeNeedRead: no progress possible until more input arrives.
	OutcomeNeedRead
	// OutcomeNeedWrite: ProgressResult.Write holds bytes to write now.
	OutcomeNeedWrite
	// OutcomeIdle: no progress possible right now, but the session is
	// open (nothing to read or write yet, e.g. mid-IDLE with no
	// pending caller action).
	OutcomeIdle
	// OutcomeClosed: the session is closed; no further progress.
	OutcomeClosed
)

// ProgressResult is returned by Kernel.Progress.
type ProgressResult struct {
	Outcome Outcome
	Event   Event  // valid when Outcome == OutcomeEvent
	Write   []byte // valid when Outcome == OutcomeNeedWrite
}
