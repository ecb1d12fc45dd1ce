package appendlimit

import (
	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/extension"
)

// Extension implements the APPENDLIMIT IMAP extension (RFC 7889).
type Extension struct {
	extension.BaseExtension
}

var _ extension.ServerExtension = (*Extension)(nil)

// New creates a new APPENDLIMIT extension.
func New() *Extension {
	return &Extension{
		BaseExtension: extension.BaseExtension{
			ExtName:         "APPENDLIMIT",
			ExtCapabilities: []imap.Cap{imap.CapAppendLimit},
		},
	}
}

func (e *Extension) SessionInterface() interface{} { return nil }
