package jmapaccess

import (
	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/extension"
)

// Extension implements the JMAPACCESS IMAP extension (RFC 9698).
type Extension struct {
	extension.BaseExtension
}

var _ extension.ServerExtension = (*Extension)(nil)

// New creates a new JMAPACCESS extension.
func New() *Extension {
	return &Extension{
		BaseExtension: extension.BaseExtension{
			ExtName:         "JMAPACCESS",
			ExtCapabilities: []imap.Cap{imap.CapJMAPAccess},
		},
	}
}

func (e *Extension) SessionInterface() interface{} { return nil }
