package client

import imap "github.com/meszmate/imap-flow"

// SupportsIMAP4rev2 returns true if the server supports IMAP4rev2.
func (c *Client) SupportsIMAP4rev2() bool { return c.HasCap(imap.CapIMAP4rev2) }

// SupportsIdle returns true if the server supports IDLE.
func (c *Client) SupportsIdle() bool { return c.HasCap(imap.CapIdle) }

// SupportsMove returns true if the server supports MOVE.
func (c *Client) SupportsMove() bool { return c.HasCap(imap.CapMove) }

// SupportsLiteralPlus returns true if the server supports LITERAL+.
func (c *Client) SupportsLiteralPlus() bool { return c.HasCap(imap.CapLiteralPlus) }

// SupportsUIDPlus returns true if the server supports UIDPLUS.
func (c *Client) SupportsUIDPlus() bool { return c.HasCap(imap.CapUIDPlus) }

// SupportsCondStore returns true if the server supports CONDSTORE.
func (c *Client) SupportsCondStore() bool { return c.HasCap(imap.CapCondStore) }

// SupportsQResync returns true if the server supports QRESYNC.
func (c *Client) SupportsQResync() bool { return c.HasCap(imap.Cap("QRESYNC")) }

// SupportsNamespace returns true if the server supports NAMESPACE.
func (c *Client) SupportsNamespace() bool { return c.HasCap(imap.CapNamespace) }

// SupportsSort returns true if the server supports SORT.
func (c *Client) SupportsSort() bool { return c.HasCap(imap.CapSort) }

// SupportsID returns true if the server supports ID.
func (c *Client) SupportsID() bool { return c.HasCap(imap.CapID) }

// SupportsEnable returns true if the server supports ENABLE.
func (c *Client) SupportsEnable() bool { return c.HasCap(imap.CapEnable) }

// SupportsStartTLS returns true if the server supports STARTTLS.
func (c *Client) SupportsStartTLS() bool { return c.HasCap(imap.CapStartTLS) }

// Capability issues the CAPABILITY command; the response's CAPABILITY
// data updates the cached capability set as it arrives (see
// handleNamedData), so by the time the result is Done, Caps reflects it.
func (c *Client) Capability() (*CommandResult, error) {
	return c.enqueue("CAPABILITY")
}

// Noop issues NOOP, a side-effect-free way to let queued unsolicited
// data (EXISTS, EXPUNGE, ...) arrive and be processed.
func (c *Client) Noop() (*CommandResult, error) {
	return c.enqueue("NOOP")
}

// Enable issues ENABLE for the given capabilities (RFC 5161).
func (c *Client) Enable(caps ...imap.Cap) (*CommandResult, error) {
	args := make([]string, len(caps))
	for i, cp := range caps {
		args[i] = string(cp)
	}
	return c.enqueueAtoms("ENABLE", args...)
}
