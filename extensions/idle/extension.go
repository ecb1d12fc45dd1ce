package idle

import (
	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/extension"
)

// Extension implements the IDLE IMAP extension (RFC 2177).
// IDLE allows the client to indicate it is ready to accept unsolicited
// mailbox update notifications. The command handling is built into the
// core server; this extension only advertises the capability.
type Extension struct {
	extension.BaseExtension
}

var _ extension.ServerExtension = (*Extension)(nil)

// New creates a new IDLE extension.
func New() *Extension {
	return &Extension{
		BaseExtension: extension.BaseExtension{
			ExtName:         "IDLE",
			ExtCapabilities: []imap.Cap{imap.CapIdle},
		},
	}
}

func (e *Extension) SessionInterface() interface{} { return nil }
