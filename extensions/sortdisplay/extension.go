package sortdisplay

import (
	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/extension"
)

// Extension implements the SORT=DISPLAY IMAP extension (RFC 5957).
type Extension struct {
	extension.BaseExtension
}

var _ extension.ServerExtension = (*Extension)(nil)

// New creates a new SORT=DISPLAY extension.
func New() *Extension {
	return &Extension{
		BaseExtension: extension.BaseExtension{
			ExtName:         "SORT=DISPLAY",
			ExtCapabilities: []imap.Cap{imap.CapSortDisplay},
			ExtDependencies: []string{"SORT"},
		},
	}
}

func (e *Extension) SessionInterface() interface{} { return nil }
