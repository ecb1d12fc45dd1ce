// Package notify implements the NOTIFY extension (RFC 5465).
//
// NOTIFY allows a client to request that the server send unsolicited
// notifications about changes to specified mailboxes. This enables
// real-time monitoring of multiple mailboxes without requiring separate
// IDLE connections for each one.
//
// This is a capability-only registration; the full NOTIFY command would
// need its own Conn-level command method alongside cmdIdle.
package notify

import (
	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/extension"
)

// Extension implements the NOTIFY extension (RFC 5465).
type Extension struct {
	extension.BaseExtension
}

var _ extension.ServerExtension = (*Extension)(nil)

// New creates a new NOTIFY extension.
func New() *Extension {
	return &Extension{
		BaseExtension: extension.BaseExtension{
			ExtName:         "NOTIFY",
			ExtCapabilities: []imap.Cap{imap.CapNotify},
		},
	}
}

// SessionInterface returns nil: NOTIFY has no session-level surface yet.
func (e *Extension) SessionInterface() interface{} { return nil }
