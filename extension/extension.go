// Package extension provides the IMAP extension/plugin system.
//
// Extensions advertise capabilities, declare dependencies on other
// extensions, and may name an optional session interface. They do not
// add commands or change how existing commands are handled.
package extension

import (
	imap "github.com/meszmate/imap-flow"
)

// Extension is the base interface for all IMAP extensions.
type Extension interface {
	// Name returns the unique name of the extension.
	Name() string
	// Capabilities returns the capabilities this extension provides.
	Capabilities() []imap.Cap
	// Dependencies returns the names of extensions this one depends on.
	Dependencies() []string
}

// ServerExtension is an Extension that also names the optional Session
// interface a backend can implement for deeper integration (e.g.
// extensions/uidplus.SessionUIDPlus). Most extensions need nothing
// beyond capability advertisement and command support already built
// into the core, so SessionInterface is nil for them.
type ServerExtension interface {
	Extension

	// SessionInterface returns a typed nil pointer to the optional
	// session interface this extension defines, or nil if it defines
	// none. A Session backend type-asserts itself against the pointed-to
	// interface to discover whether it should implement it.
	SessionInterface() interface{}
}

// BaseExtension provides a default implementation of Extension.
type BaseExtension struct {
	ExtName         string
	ExtCapabilities []imap.Cap
	ExtDependencies []string
}

// Name implements Extension.
func (e *BaseExtension) Name() string { return e.ExtName }

// Capabilities implements Extension.
func (e *BaseExtension) Capabilities() []imap.Cap { return e.ExtCapabilities }

// Dependencies implements Extension.
func (e *BaseExtension) Dependencies() []string { return e.ExtDependencies }
