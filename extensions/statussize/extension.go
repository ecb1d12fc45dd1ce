// Package statussize implements the STATUS=SIZE extension (RFC 8438).
//
// STATUS=SIZE adds the SIZE item to the STATUS command response, allowing
// clients to query the total size (in bytes) of all messages in a mailbox.
// The core STATUS command handler already supports the SIZE item when
// requested -- StatusOptions has a Size bool and StatusData has a Size
// *int64 field. This extension only advertises the capability so that
// clients know the server supports it.
package statussize

import (
	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/extension"
)

// Extension implements the STATUS=SIZE IMAP extension (RFC 8438).
type Extension struct {
	extension.BaseExtension
}

var _ extension.ServerExtension = (*Extension)(nil)

// New creates a new STATUS=SIZE extension.
func New() *Extension {
	return &Extension{
		BaseExtension: extension.BaseExtension{
			ExtName:         "STATUS=SIZE",
			ExtCapabilities: []imap.Cap{imap.CapStatusSize},
		},
	}
}

// SessionInterface returns nil because no additional session interface is
// needed. The core StatusOptions.Size and StatusData.Size fields provide
// full support.
func (e *Extension) SessionInterface() interface{} { return nil }
