package client

// StartTLS issues the STARTTLS command. The actual TLS handshake is
// the driving loop's responsibility:
// once this command's result is Done with an OK status, the caller
// wraps its connection in tls.Client, performs the handshake, and
// constructs a fresh Client to continue the session over the upgraded
// connection's bytes — STARTTLS resets all negotiated capabilities.
func (c *Client) StartTLS() (*CommandResult, error) {
	return c.enqueue("STARTTLS")
}
