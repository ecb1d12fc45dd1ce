package client

import (
	"encoding/base64"
	"sync"

	imap "github.com/meszmate/imap-flow"
	imapauth "github.com/meszmate/imap-flow/auth"
	"github.com/meszmate/imap-flow/flow"
	"github.com/meszmate/imap-flow/wire"
)

// authExchange tracks the SASL mechanism driving an in-flight
// AUTHENTICATE command, keyed by the command's handle so the
// challenge/response loop can be resumed from Client.dispatch.
type authExchange struct {
	mu sync.Mutex

	mechs map[Handle]imapauth.ClientMechanism

	// pendingIR holds an initial response the mechanism already
	// computed but that couldn't be sent inline on the command line
	// because the server never advertised SASL-IR; it is sent instead
	// as the response to the first continuation request.
	pendingIR map[Handle][]byte
}

func newAuthExchange() *authExchange {
	return &authExchange{
		mechs:     make(map[Handle]imapauth.ClientMechanism),
		pendingIR: make(map[Handle][]byte),
	}
}

// Login issues LOGIN and returns the command's result handle; the
// caller drives Progress until the handle's result is Done.
func (c *Client) Login(username, password string) (*CommandResult, error) {
	return c.enqueue("LOGIN", wire.Arg{Text: username, Quoted: true}, wire.Arg{Text: password, Quoted: true})
}

// Authenticate issues AUTHENTICATE for the given SASL mechanism. The
// mechanism's challenge/response exchange is driven automatically as
// AuthenticateContinuationRequest events arrive during Progress; the
// caller only needs to keep calling Progress until the returned
// handle's result is Done.
func (c *Client) Authenticate(mechanism imapauth.ClientMechanism) (*CommandResult, error) {
	ir, err := mechanism.Start()
	if err != nil {
		return nil, err
	}

	args := []wire.Arg{wire.ArgAtom(mechanism.Name())}
	sendIR := ir != nil && c.opts.InitialResponseEnabled && c.HasCap(imap.CapSASLIR)
	if sendIR {
		args = append(args, wire.ArgAtom(base64.StdEncoding.EncodeToString(ir)))
	}

	r, err := c.enqueue("AUTHENTICATE", args...)
	if err != nil {
		return nil, err
	}

	c.auth.mu.Lock()
	c.auth.mechs[r.Handle] = mechanism
	if ir != nil && !sendIR {
		c.auth.pendingIR[r.Handle] = ir
	}
	c.auth.mu.Unlock()

	return r, nil
}

func (c *Client) handleAuthChallenge(h Handle, challenge []byte) {
	c.auth.mu.Lock()
	mech, ok := c.auth.mechs[h]
	ir, hasIR := c.auth.pendingIR[h]
	if hasIR {
		delete(c.auth.pendingIR, h)
	}
	c.auth.mu.Unlock()
	if !ok {
		return
	}

	if hasIR {
		_ = c.kernel.SetAuthenticateData(h, ir)
		return
	}

	resp, err := mech.Next(challenge)
	if err != nil {
		_ = c.kernel.CancelAuthenticate(h)
		return
	}
	_ = c.kernel.SetAuthenticateData(h, resp)
}

// Logout issues LOGOUT; the caller should drive Progress to OutcomeClosed
// after its result completes.
func (c *Client) Logout() (*CommandResult, error) {
	return c.enqueue("LOGOUT")
}

// Unauthenticate issues UNAUTHENTICATE (RFC 8437), dropping back to the
// not-authenticated state without closing the connection.
func (c *Client) Unauthenticate() (*CommandResult, error) {
	return c.enqueue("UNAUTHENTICATE")
}

func (c *Client) handleIdleOutcome(kind flow.EventKind, h Handle, status *flow.ImapStatus) {
	c.mu.Lock()
	r, ok := c.results[h]
	c.mu.Unlock()
	if !ok {
		return
	}
	if kind == flow.IdleRejected {
		r.Status = status
		r.Done = true
		c.mu.Lock()
		c.popPending(h)
		c.mu.Unlock()
	}
}
