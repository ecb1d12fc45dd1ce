package client

import (
	"github.com/rs/zerolog"

	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/flow"
)

// Option is a functional option for configuring a Client.
type Option func(*Options)

// Options holds client configuration. The flow-level concerns (literal
// gating, frame/literal size limits, SASL-IR, STARTTLS permission) are
// mirrored here and forwarded into the underlying flow.Kernel's Options.
type Options struct {
	// Logger is the structured diagnostic logger.
	Logger zerolog.Logger

	// CRLFRelaxed accepts a bare LF as a line terminator on input.
	CRLFRelaxed bool

	// MaxLiteralSize rejects an announced literal larger than this.
	MaxLiteralSize int64

	// MaxFrameSize bounds the unconsumed receive buffer.
	MaxFrameSize int64

	// InitialResponseEnabled permits SASL-IR (RFC 4959).
	InitialResponseEnabled bool

	// StartTLSPermitted allows the STARTTLS command to be enqueued.
	StartTLSPermitted bool

	// LiteralPlusPolicy governs optimistic non-synchronizing literal use.
	LiteralPlusPolicy flow.LiteralPlusPolicy

	// UnilateralDataHandler receives unsolicited server data as it is
	// observed, in addition to being folded into the cached
	// MailboxStatus.
	UnilateralDataHandler *UnilateralDataHandler
}

// UnilateralDataHandler handles unsolicited server data delivered
// in-line during Client.Progress, mirroring the teacher's callback
// shape without the goroutine that used to invoke it.
type UnilateralDataHandler struct {
	Expunge func(seqNum uint32)
	Exists  func(count uint32)
	Recent  func(count uint32)
	Fetch   func(msg *imap.FetchMessageBuffer)
	Mailbox func(status *MailboxStatus)
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		Logger:         zerolog.Nop(),
		MaxLiteralSize: 64 * 1024 * 1024,
		MaxFrameSize:   1 * 1024 * 1024,
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithCRLFRelaxed accepts a bare LF as a line terminator on input.
func WithCRLFRelaxed(relaxed bool) Option {
	return func(o *Options) { o.CRLFRelaxed = relaxed }
}

// WithMaxLiteralSize sets the maximum accepted literal size.
func WithMaxLiteralSize(n int64) Option {
	return func(o *Options) { o.MaxLiteralSize = n }
}

// WithMaxFrameSize sets the maximum unconsumed receive buffer size.
func WithMaxFrameSize(n int64) Option {
	return func(o *Options) { o.MaxFrameSize = n }
}

// WithInitialResponseEnabled permits SASL-IR.
func WithInitialResponseEnabled(enabled bool) Option {
	return func(o *Options) { o.InitialResponseEnabled = enabled }
}

// WithStartTLSPermitted allows the STARTTLS command to be enqueued.
func WithStartTLSPermitted(permitted bool) Option {
	return func(o *Options) { o.StartTLSPermitted = permitted }
}

// WithLiteralPlusPolicy sets the non-synchronizing literal policy.
func WithLiteralPlusPolicy(p flow.LiteralPlusPolicy) Option {
	return func(o *Options) { o.LiteralPlusPolicy = p }
}

// WithUnilateralDataHandler installs unsolicited-data callbacks.
func WithUnilateralDataHandler(h *UnilateralDataHandler) Option {
	return func(o *Options) { o.UnilateralDataHandler = h }
}

// flowOptions builds the flow.Options this Options maps to, consulting
// caps for literal gating and SASL-IR policy.
func (o *Options) flowOptions(caps *imap.CapSet) *flow.Options {
	return &flow.Options{
		CRLFRelaxed:            o.CRLFRelaxed,
		MaxLiteralSize:         o.MaxLiteralSize,
		MaxFrameSize:           o.MaxFrameSize,
		InitialResponseEnabled: o.InitialResponseEnabled,
		StartTLSPermitted:      o.StartTLSPermitted,
		LiteralPlusPolicy:      o.LiteralPlusPolicy,
		Caps:                   caps,
		Logger:                 o.Logger,
	}
}
