package within

import (
	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/extension"
)

// Extension implements the WITHIN IMAP extension (RFC 5032).
type Extension struct {
	extension.BaseExtension
}

var _ extension.ServerExtension = (*Extension)(nil)

// New creates a new WITHIN extension.
func New() *Extension {
	return &Extension{
		BaseExtension: extension.BaseExtension{
			ExtName:         "WITHIN",
			ExtCapabilities: []imap.Cap{imap.CapWithin},
		},
	}
}

func (e *Extension) SessionInterface() interface{} { return nil }
