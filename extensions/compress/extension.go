// Package compress implements the COMPRESS=DEFLATE extension (RFC 4978).
//
// COMPRESS allows the client and server to negotiate DEFLATE compression
// for the IMAP connection. After successful negotiation, all data sent
// in both directions is compressed using the DEFLATE algorithm, which
// can significantly reduce bandwidth usage.
//
// This is a capability-only registration: the COMPRESS command itself
// would need to wrap the driving loop's net.Conn in a compress/flate
// reader/writer pair, which is the driving loop's responsibility, not
// the sans-I/O Conn's.
package compress

import (
	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/extension"
)

// Extension implements the COMPRESS=DEFLATE extension (RFC 4978).
type Extension struct {
	extension.BaseExtension
}

var _ extension.ServerExtension = (*Extension)(nil)

// New creates a new COMPRESS=DEFLATE extension.
func New() *Extension {
	return &Extension{
		BaseExtension: extension.BaseExtension{
			ExtName:         "COMPRESS",
			ExtCapabilities: []imap.Cap{imap.CapCompressDeflate},
		},
	}
}

// SessionInterface returns nil: COMPRESS has no session-level surface.
func (e *Extension) SessionInterface() interface{} { return nil }
