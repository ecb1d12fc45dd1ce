package enable

import (
	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/extension"
)

// Extension implements the ENABLE IMAP extension (RFC 5161).
// ENABLE allows a client to activate server extensions that need explicit
// opt-in. The command handling is built into the core server; this extension
// only advertises the capability.
type Extension struct {
	extension.BaseExtension
}

var _ extension.ServerExtension = (*Extension)(nil)

// New creates a new ENABLE extension.
func New() *Extension {
	return &Extension{
		BaseExtension: extension.BaseExtension{
			ExtName:         "ENABLE",
			ExtCapabilities: []imap.Cap{imap.CapEnable},
		},
	}
}

func (e *Extension) SessionInterface() interface{} { return nil }
