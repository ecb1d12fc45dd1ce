package flow

import (
	"github.com/rs/zerolog"

	imap "github.com/meszmate/imap-flow"
)

// LiteralPlusPolicy controls whether a side may use a
// non-synchronizing literal ({n+}) before the peer has advertised
// LITERAL+/LITERAL- support.
type LiteralPlusPolicy int

const (
	// LiteralPlusConservative always waits for a continuation unless
	// the peer's capability set advertises LITERAL+/LITERAL-. This is
	// the default; see DESIGN.md's Open Question decision.
	LiteralPlusConservative LiteralPlusPolicy = iota
	// LiteralPlusOptimistic sends non-synchronizing literals
	// regardless of advertised peer support.
	LiteralPlusOptimistic
)

const (
	defaultMaxLiteralSize = 64 * 1024 * 1024 // 64 MiB
	defaultMaxFrameSize   = 1 * 1024 * 1024  // 1 MiB of unconsumed, non-literal input
)

// Option is a functional option for configuring a Kernel.
type Option func(*Options)

// Options holds Kernel configuration. Immutable once a Kernel is
// constructed from it.
type Options struct {
	// CRLFRelaxed accepts a bare LF as a line terminator on input.
	CRLFRelaxed bool

	// MaxLiteralSize rejects an announced literal larger than this
	// with LiteralTooLarge before any of its octets are consumed.
	MaxLiteralSize int64

	// MaxFrameSize bounds the unconsumed receive buffer; exceeding it
	// without a message boundary is FrameTooLarge.
	MaxFrameSize int64

	// InitialResponseEnabled permits SASL-IR (RFC 4959): an
	// AUTHENTICATE command may carry its first response inline.
	InitialResponseEnabled bool

	// StartTLSPermitted allows the STARTTLS command to be enqueued.
	StartTLSPermitted bool

	// LiteralPlusPolicy governs optimistic non-synchronizing literal
	// use ahead of peer advertisement.
	LiteralPlusPolicy LiteralPlusPolicy

	// Caps seeds the capability set consulted for literal gating and
	// SASL-IR policy. May be nil (no capabilities known yet).
	Caps *imap.CapSet

	// Logger is the structured diagnostic logger.
	Logger zerolog.Logger
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		MaxLiteralSize: defaultMaxLiteralSize,
		MaxFrameSize:   defaultMaxFrameSize,
		LiteralPlusPolicy: LiteralPlusConservative,
		Logger:         zerolog.Nop(),
	}
}

// NewOptions builds an Options from defaults plus the given Option
// functions, applied in order.
func NewOptions(opts ...Option) *Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithCRLFRelaxed sets CRLFRelaxed.
func WithCRLFRelaxed(relaxed bool) Option {
	return func(o *Options) { o.CRLFRelaxed = relaxed }
}

// WithMaxLiteralSize sets MaxLiteralSize.
func WithMaxLiteralSize(n int64) Option {
	return func(o *Options) { o.MaxLiteralSize = n }
}

// WithMaxFrameSize sets MaxFrameSize.
func WithMaxFrameSize(n int64) Option {
	return func(o *Options) { o.MaxFrameSize = n }
}

// WithInitialResponseEnabled sets InitialResponseEnabled.
func WithInitialResponseEnabled(enabled bool) Option {
	return func(o *Options) { o.InitialResponseEnabled = enabled }
}

// WithStartTLSPermitted sets StartTLSPermitted.
func WithStartTLSPermitted(permitted bool) Option {
	return func(o *Options) { o.StartTLSPermitted = permitted }
}

// WithLiteralPlusPolicy sets LiteralPlusPolicy.
func WithLiteralPlusPolicy(p LiteralPlusPolicy) Option {
	return func(o *Options) { o.LiteralPlusPolicy = p }
}

// WithCaps sets Caps.
func WithCaps(caps *imap.CapSet) Option {
	return func(o *Options) { o.Caps = caps }
}

// WithLogger sets Logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// supportsLiteralPlus reports whether the peer's advertised
// capabilities (or an optimistic policy) permit non-synchronizing
// literal use right now.
func (o *Options) supportsLiteralPlus() bool {
	if o.LiteralPlusPolicy == LiteralPlusOptimistic {
		return true
	}
	if o.Caps == nil {
		return false
	}
	return o.Caps.Has(imap.CapLiteralPlus) || o.Caps.Has(imap.CapLiteralMinus)
}
