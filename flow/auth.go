package flow

import (
	"encoding/base64"
	"strings"

	"github.com/meszmate/imap-flow/wire"
)

// clientHandleAuthContinuation routes an inbound continuation while an
// AUTHENTICATE exchange is in flight (spec.md §4.3.2). It is only
// reached once literal-gating and cancellation have already been
// ruled out by the caller (handleInboundContinuation).
func (k *Kernel) clientHandleAuthContinuation(msg *wire.Message) {
	if k.authCancelPending {
		k.authCancelPending = false
		k.priorityWrite = []byte("*\r\n")
		k.priorityKind = priorityAuthResponse
		k.authState = authContinuing
		return
	}
	data, err := base64.StdEncoding.DecodeString(msg.Text)
	if err != nil {
		data = nil
	}
	k.authState = authChallenging
	k.events = append(k.events, Event{Kind: AuthenticateContinuationRequest, Handle: k.authHandle, AuthData: data})
}

// SetAuthenticateData answers an AuthenticateContinuationRequest. A
// nil data cancels the exchange (sends a bare "*" line) per spec.md
// §4.3.2; any non-nil value, including an empty (non-nil) slice, is
// base64-encoded and sent as the response line.
func (k *Kernel) SetAuthenticateData(h Handle, data []byte) error {
	if k.side != ClientSide {
		return newError(ErrInvalidInMode, "SetAuthenticateData is client-only")
	}
	if k.closed {
		return newError(ErrConnectionClosed, "session closed")
	}
	if !k.hasAuthHandle || h != k.authHandle {
		return newError(ErrUnknownHandle, "handle is not the active AUTHENTICATE")
	}
	if k.authState != authChallenging {
		return newError(ErrInvalidInMode, "not awaiting an authentication challenge response")
	}
	var line string
	if data == nil {
		line = "*"
	} else {
		line = base64.StdEncoding.EncodeToString(data)
	}
	k.priorityWrite = []byte(line + "\r\n")
	k.priorityKind = priorityAuthResponse
	k.authState = authContinuing
	return nil
}

// CancelAuthenticate aborts an in-flight AUTHENTICATE command
// (spec.md §5): if a challenge is currently pending it behaves like
// SetAuthenticateData(h, nil); otherwise it arms a cancellation to be
// sent as soon as the next challenge arrives.
func (k *Kernel) CancelAuthenticate(h Handle) error {
	if k.side != ClientSide {
		return newError(ErrInvalidInMode, "CancelAuthenticate is client-only")
	}
	if !k.hasAuthHandle || h != k.authHandle {
		return newError(ErrUnknownHandle, "handle is not the active AUTHENTICATE")
	}
	switch k.authState {
	case authChallenging:
		return k.SetAuthenticateData(h, nil)
	case authIdle, authSent, authContinuing:
		k.authCancelPending = true
		return nil
	default:
		return newError(ErrInvalidInMode, "AUTHENTICATE is not in a cancellable state")
	}
}

// SendAuthenticateChallenge (server-side) enqueues a SASL challenge as
// a continuation response and arms the kernel to read the client's
// raw response line next, bypassing command grammar.
func (k *Kernel) SendAuthenticateChallenge(data []byte) (Handle, error) {
	if k.side != ServerSide {
		return 0, newError(ErrInvalidInMode, "SendAuthenticateChallenge is server-only")
	}
	if k.mode != ModeAuthenticating {
		return 0, newError(ErrInvalidInMode, "no AUTHENTICATE command is in progress")
	}
	h, err := k.EnqueueResponse(wire.NewContinuation(base64.StdEncoding.EncodeToString(data)))
	if err != nil {
		return 0, err
	}
	k.authState = authChallenging
	return h, nil
}

// serverHandleAuthLine (server-side) interprets one raw inbound line
// while awaiting the client's response to a SASL challenge.
func (k *Kernel) serverHandleAuthLine(line string) {
	if strings.TrimSpace(line) == "*" {
		k.authState = authContinuing
		k.events = append(k.events, Event{Kind: AuthenticateUpdated, AuthData: nil})
		return
	}
	data, err := base64.StdEncoding.DecodeString(line)
	if err != nil {
		data = nil
	}
	k.authState = authContinuing
	k.events = append(k.events, Event{Kind: AuthenticateUpdated, AuthData: data})
}
