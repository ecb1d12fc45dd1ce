package flow

import "github.com/meszmate/imap-flow/wire"

// canProceedPastLiteral decides, for the literal that just ended the
// current outbound fragment, whether the kernel may promote to the
// next fragment immediately (spec.md §4.3.1).
//
// Servers never need the client's permission to send a literal in a
// response (RFC 3501's continuation-request mechanism only gates
// client-to-server literals), so a server-side Kernel always
// proceeds. A client-side Kernel may only proceed immediately for a
// non-synchronizing literal when the peer has advertised support (or
// policy says to assume it).
func (k *Kernel) canProceedPastLiteral(nonSync bool) bool {
	if k.side == ServerSide {
		return true
	}
	return nonSync && k.opts.supportsLiteralPlus()
}

// reactToInboundLiteral handles an inbound RecvLiteral outcome. Per
// spec.md §4.3.1: a server receiving a synchronizing literal from the
// client must synthesize a continuation request ahead of anything
// else queued; a non-synchronizing literal needs no reaction (the
// client already sent it without waiting), and a client never needs
// to react to a literal in a server response.
func (k *Kernel) reactToInboundLiteral(ann wire.LiteralAnnounce) {
	if k.side != ServerSide || ann.NonSync {
		return
	}
	k.priorityWrite = append(k.priorityWrite, []byte("+ OK\r\n")...)
	k.priorityKind = priorityContinuationRequest
}
