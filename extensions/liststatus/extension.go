// Package liststatus implements the LIST-STATUS IMAP extension (RFC 5819).
//
// LIST-STATUS allows the client to request STATUS data for each mailbox
// returned by a LIST command, reducing the number of round-trips needed
// to gather mailbox information. The core LIST command already handles the
// STATUS return option via ListOptions.ReturnStatus; this extension
// advertises the capability and exposes a session interface.
// It depends on the LIST-EXTENDED extension (RFC 5258).
package liststatus

import (
	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/extension"
	"github.com/meszmate/imap-flow/server"
)

// SessionListStatus is an optional interface for sessions that support
// the LIST-STATUS extension. Backends implementing this interface can
// return STATUS data alongside LIST responses.
type SessionListStatus interface {
	ListStatus(w *server.ListWriter, ref string, patterns []string, options *imap.ListOptions) error
}

// Extension implements the LIST-STATUS IMAP extension (RFC 5819).
// LIST-STATUS allows the client to request STATUS data for each mailbox
// returned by a LIST command, reducing the number of round-trips needed
// to gather mailbox information. The core LIST command already handles the
// STATUS return option; this extension advertises the capability and
// exposes a session interface. It depends on the LIST-EXTENDED extension.
type Extension struct {
	extension.BaseExtension
}

var _ extension.ServerExtension = (*Extension)(nil)

// New creates a new LIST-STATUS extension.
func New() *Extension {
	return &Extension{
		BaseExtension: extension.BaseExtension{
			ExtName:         "LIST-STATUS",
			ExtCapabilities: []imap.Cap{imap.CapListStatus},
			ExtDependencies: []string{"LIST-EXTENDED"},
		},
	}
}


// SessionInterface returns the SessionListStatus interface that sessions
// may implement to support STATUS return options in LIST.
func (e *Extension) SessionInterface() interface{} {
	return (*SessionListStatus)(nil)
}

