package server

import (
	"github.com/rs/zerolog"

	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/extension"
	"github.com/meszmate/imap-flow/flow"
)

// Option is a functional option for configuring a Server.
type Option func(*Options)

// Options holds server configuration. The flow-level concerns (literal
// gating, frame/literal size limits, STARTTLS permission) are mirrored
// here and forwarded into the underlying flow.Kernel's Options, the
// same shape client.Options uses on the other side of the wire.
type Options struct {
	// Logger is the structured diagnostic logger.
	Logger zerolog.Logger

	// Caps is the set of capabilities to advertise.
	Caps *imap.CapSet

	// NewSession is called once per connection to obtain a backend.
	NewSession func(conn *Conn) (Session, error)

	// MaxLiteralSize rejects an announced literal larger than this.
	MaxLiteralSize int64

	// MaxFrameSize bounds the unconsumed receive buffer.
	MaxFrameSize int64

	// LiteralPlusPolicy governs whether a synchronizing "+ OK" is
	// synthesized for client literals even when LITERAL+ is advertised.
	LiteralPlusPolicy flow.LiteralPlusPolicy

	// GreetingText is the text sent in the initial "* OK" greeting.
	GreetingText string

	// AllowInsecureAuth allows LOGIN/AUTHENTICATE before TLS.
	AllowInsecureAuth bool

	// EnableStartTLS advertises STARTTLS and permits the command to be
	// accepted. The handshake itself is the driving loop's job; Conn
	// only tracks IsTLS().
	EnableStartTLS bool

	// Extensions are layered on top of Caps when advertising
	// capabilities: each extension's own Capabilities() are added, in
	// registration order, after dependency resolution. A Session that
	// wants to act on an enabled extension checks Conn.Enabled() or
	// type-asserts itself against the extension's session interface
	// (e.g. extensions/uidplus.SessionUIDPlus) — extensions no longer
	// wrap command dispatch themselves.
	Extensions []extension.Extension
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		Logger:         zerolog.Nop(),
		Caps:           NewDefaultCapSet(),
		MaxLiteralSize: 64 * 1024 * 1024,
		MaxFrameSize:   1 * 1024 * 1024,
		GreetingText:   "IMAP server ready",
	}
}

// NewDefaultCapSet returns a CapSet with the default capabilities.
func NewDefaultCapSet() *imap.CapSet {
	return imap.NewCapSet(
		imap.CapIMAP4rev1,
		imap.CapIdle,
		imap.CapLiteralPlus,
	)
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithNewSession sets the session factory.
func WithNewSession(fn func(conn *Conn) (Session, error)) Option {
	return func(o *Options) { o.NewSession = fn }
}

// WithMaxLiteralSize sets the maximum accepted literal size.
func WithMaxLiteralSize(size int64) Option {
	return func(o *Options) { o.MaxLiteralSize = size }
}

// WithMaxFrameSize sets the maximum unconsumed receive buffer size.
func WithMaxFrameSize(size int64) Option {
	return func(o *Options) { o.MaxFrameSize = size }
}

// WithLiteralPlusPolicy sets the non-synchronizing literal policy.
func WithLiteralPlusPolicy(p flow.LiteralPlusPolicy) Option {
	return func(o *Options) { o.LiteralPlusPolicy = p }
}

// WithCapabilities adds capabilities to the server's advertised set.
func WithCapabilities(caps ...imap.Cap) Option {
	return func(o *Options) { o.Caps.Add(caps...) }
}

// WithGreetingText sets the greeting text.
func WithGreetingText(text string) Option {
	return func(o *Options) { o.GreetingText = text }
}

// WithAllowInsecureAuth allows authentication without TLS.
func WithAllowInsecureAuth(allow bool) Option {
	return func(o *Options) { o.AllowInsecureAuth = allow }
}

// WithStartTLS advertises and permits STARTTLS.
func WithStartTLS(enable bool) Option {
	return func(o *Options) { o.EnableStartTLS = enable }
}

// WithExtensions registers extensions whose capabilities should be
// advertised alongside the base set. Extensions are resolved in
// dependency order at registration time; a missing dependency or a
// cycle is reported immediately rather than surfacing later as a
// silently-unadvertised capability.
func WithExtensions(exts ...extension.Extension) Option {
	return func(o *Options) {
		reg := extension.NewRegistry()
		for _, ext := range exts {
			if err := reg.Register(ext); err != nil {
				panic(err)
			}
		}
		resolved, err := reg.Resolve()
		if err != nil {
			panic(err)
		}
		o.Extensions = resolved
	}
}

// flowOptions builds the flow.Options this Options maps to.
func (o *Options) flowOptions(caps *imap.CapSet) *flow.Options {
	return &flow.Options{
		MaxLiteralSize:    o.MaxLiteralSize,
		MaxFrameSize:      o.MaxFrameSize,
		LiteralPlusPolicy: o.LiteralPlusPolicy,
		Caps:              caps,
		Logger:            o.Logger,
	}
}
