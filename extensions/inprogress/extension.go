package inprogress

import (
	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/extension"
)

// Extension implements the INPROGRESS IMAP extension (RFC 9585).
type Extension struct {
	extension.BaseExtension
}

var _ extension.ServerExtension = (*Extension)(nil)

// New creates a new INPROGRESS extension.
func New() *Extension {
	return &Extension{
		BaseExtension: extension.BaseExtension{
			ExtName:         "INPROGRESS",
			ExtCapabilities: []imap.Cap{imap.CapInProgress},
		},
	}
}

func (e *Extension) SessionInterface() interface{} { return nil }
