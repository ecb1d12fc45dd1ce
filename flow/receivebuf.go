package flow

import (
	"github.com/meszmate/imap-flow/wire"
)

// RecvOutcome is the result of one ReceiveBuffer.TryNext call,
// spec.md §4.1's {Message | Need(n_hint) | Literal(n)}.
type RecvOutcome int

const (
	RecvNeed RecvOutcome = iota
	RecvLiteral
	RecvMessage
)

// ReceiveBuffer accumulates inbound bytes and yields one parsed
// message at a time. It wraps wire.Framer (boundary detection) and
// wire.Parse (grammar, invoked only once a message is fully framed),
// adding nothing of its own beyond that composition — the
// max_literal_size/frame-size caps it's responsible for per spec.md
// §4.1 are already enforced inside wire.Framer.Next, constructed with
// the same limits.
type ReceiveBuffer struct {
	framer *wire.Framer
}

// NewReceiveBuffer builds a ReceiveBuffer honoring crlfRelaxed and the
// two safety caps.
func NewReceiveBuffer(crlfRelaxed bool, maxLiteralSize, maxFrameSize int64) *ReceiveBuffer {
	return &ReceiveBuffer{framer: wire.NewFramer(crlfRelaxed, maxLiteralSize, maxFrameSize)}
}

// Extend appends bytes to the internal buffer. No parsing.
func (r *ReceiveBuffer) Extend(b []byte) { r.framer.Extend(b) }

// TryNext attempts to parse the next message.
func (r *ReceiveBuffer) TryNext() (RecvOutcome, *wire.Message, wire.LiteralAnnounce, error) {
	outcome, raw, ann, err := r.TryNextRaw()
	if err != nil || outcome != RecvMessage {
		return outcome, nil, ann, err
	}
	msg, err := wire.Parse(raw)
	if err != nil {
		return RecvNeed, nil, wire.LiteralAnnounce{}, err
	}
	return RecvMessage, msg, wire.LiteralAnnounce{}, nil
}

// TryNextRaw is TryNext without the grammar-parsing step: it yields
// the framed message's raw bytes as-is. Used while the Kernel expects
// a line that isn't IMAP command/response grammar at all (an
// AUTHENTICATE continuation response or the IDLE "DONE" terminator).
func (r *ReceiveBuffer) TryNextRaw() (RecvOutcome, []byte, wire.LiteralAnnounce, error) {
	outcome, err := r.framer.Next()
	if err != nil {
		return RecvNeed, nil, wire.LiteralAnnounce{}, err
	}
	switch outcome {
	case wire.OutcomeNeed:
		return RecvNeed, nil, wire.LiteralAnnounce{}, nil
	case wire.OutcomeLiteral:
		return RecvLiteral, nil, r.framer.Announce(), nil
	case wire.OutcomeMessage:
		return RecvMessage, r.framer.Take(), wire.LiteralAnnounce{}, nil
	default:
		return RecvNeed, nil, wire.LiteralAnnounce{}, nil
	}
}
