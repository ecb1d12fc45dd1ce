package client

import "github.com/meszmate/imap-flow/wire"

// ResponseHandler handles an untagged data response not otherwise
// known to Client, keyed by its data name (e.g. "METADATA", "QUOTA").
type ResponseHandler func(msg *wire.Message)

// ExtensionHandlers lets extension packages register handling for
// untagged data this Client's built-in dispatch doesn't recognize.
type ExtensionHandlers struct {
	Response map[string]ResponseHandler
}

// NewExtensionHandlers creates an empty ExtensionHandlers.
func NewExtensionHandlers() *ExtensionHandlers {
	return &ExtensionHandlers{Response: make(map[string]ResponseHandler)}
}

// RegisterResponseHandler installs a handler for the named untagged
// data response.
func (c *Client) RegisterResponseHandler(name string, h ResponseHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.extensions == nil {
		c.extensions = NewExtensionHandlers()
	}
	c.extensions.Response[name] = h
}
