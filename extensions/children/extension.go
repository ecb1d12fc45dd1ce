package children

import (
	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/extension"
)

// Extension implements the CHILDREN IMAP extension (RFC 3348).
// CHILDREN allows the server to indicate whether a mailbox has child
// mailboxes via \HasChildren and \HasNoChildren attributes in LIST
// responses. The LIST command already handles these attributes; this
// extension only advertises the capability.
type Extension struct {
	extension.BaseExtension
}

var _ extension.ServerExtension = (*Extension)(nil)

// New creates a new CHILDREN extension.
func New() *Extension {
	return &Extension{
		BaseExtension: extension.BaseExtension{
			ExtName:         "CHILDREN",
			ExtCapabilities: []imap.Cap{imap.CapChildren},
		},
	}
}

func (e *Extension) SessionInterface() interface{} { return nil }
