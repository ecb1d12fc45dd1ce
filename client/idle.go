package client

// Idle issues IDLE and returns the command's result handle. The
// caller keeps driving Progress; once the handle's result carries an
// IdleAccepted outcome (observable via Result, Status nil and Done
// false) unsolicited mailbox data arrives through the normal Data
// dispatch path until IdleDone is called.
func (c *Client) Idle() (*CommandResult, error) {
	return c.enqueue("IDLE")
}

// IdleDone sends the DONE terminator for an in-progress IDLE command.
func (c *Client) IdleDone(h Handle) error {
	return c.kernel.SetIdleDone(h)
}
