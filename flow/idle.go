package flow

import (
	"strings"

	"github.com/meszmate/imap-flow/wire"
)

// SetIdleDone (client-side) writes the DONE terminator that exits
// IDLE (spec.md §4.3.3). h must be the handle returned when IDLE was
// enqueued, and IDLE must already have been accepted by the server.
func (k *Kernel) SetIdleDone(h Handle) error {
	if k.side != ClientSide {
		return newError(ErrInvalidInMode, "SetIdleDone is client-only")
	}
	if k.closed {
		return newError(ErrConnectionClosed, "session closed")
	}
	if !k.hasIdleHandle || h != k.idleHandle {
		return newError(ErrUnknownHandle, "handle is not the active IDLE")
	}
	if k.idleState != idleAccepted {
		return newError(ErrInvalidInMode, "IDLE has not been accepted yet")
	}
	k.priorityWrite = []byte("DONE\r\n")
	k.priorityKind = priorityIdleDone
	k.idleState = idleDoneSent
	return nil
}

// AcceptIdle (server-side) enqueues the continuation response that
// accepts a client's IDLE command and arms the mode transition into
// Idling once it is fully written.
func (k *Kernel) AcceptIdle(text string) (Handle, error) {
	if k.side != ServerSide {
		return 0, newError(ErrInvalidInMode, "AcceptIdle is server-only")
	}
	if k.mode != ModeIdling {
		return 0, newError(ErrInvalidInMode, "no IDLE command is in progress")
	}
	h, err := k.EnqueueResponse(wire.NewContinuation(text))
	if err != nil {
		return 0, err
	}
	k.idleAcceptHandle = h
	k.hasIdleAcceptHandle = true
	return h, nil
}

// serverHandleIdleLine (server-side) interprets one raw inbound line
// while streaming unsolicited data during IDLE, looking for the DONE
// terminator (case-insensitive, per spec.md §4.3.3).
func (k *Kernel) serverHandleIdleLine(line string) {
	if strings.EqualFold(strings.TrimSpace(line), "DONE") {
		k.idleState = idleDoneSent
		k.events = append(k.events, Event{Kind: IdleDone})
	}
}
