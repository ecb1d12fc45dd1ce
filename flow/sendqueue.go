package flow

import (
	"github.com/meszmate/imap-flow/wire"
)

// outboundEntry is spec.md §3's Outbound Entry: a handle, the message
// it came from, its pre-split fragments, and a cursor (fragment index
// + byte offset within that fragment).
type outboundEntry struct {
	handle    Handle
	message   *wire.Message
	fragments []wire.Fragment
	fragIdx   int
	byteOff   int
}

func (e *outboundEntry) currentFragment() wire.Fragment { return e.fragments[e.fragIdx] }
func (e *outboundEntry) isLastFragment() bool            { return e.fragIdx == len(e.fragments)-1 }
func (e *outboundEntry) fragmentExhausted() bool {
	return e.byteOff >= len(e.fragments[e.fragIdx].Data)
}

// HeadView is a read-only view of the queue's current head fragment,
// from the current byte offset onward.
type HeadView struct {
	Handle              Handle
	Data                []byte
	IsLastFragment      bool
	EndsInLiteralHeader bool
	LiteralNonSync      bool
}

// SendQueue holds enqueued outgoing messages in strict FIFO order, one
// per spec.md §4.2: no reordering, no coalescing.
type SendQueue struct {
	entries []*outboundEntry
}

// NewSendQueue creates an empty SendQueue.
func NewSendQueue() *SendQueue { return &SendQueue{} }

// Enqueue appends an Outbound Entry for msg under handle, asking the
// serializer to split it at literal boundaries.
func (q *SendQueue) Enqueue(handle Handle, msg *wire.Message) error {
	frags, err := wire.Serialize(msg)
	if err != nil {
		return err
	}
	q.entries = append(q.entries, &outboundEntry{handle: handle, message: msg, fragments: frags})
	return nil
}

// Len reports the number of entries still queued (including the head).
func (q *SendQueue) Len() int { return len(q.entries) }

// Head returns a view of the current fragment slice from the current
// byte offset, or ok=false if the queue is empty.
func (q *SendQueue) Head() (HeadView, bool) {
	if len(q.entries) == 0 {
		return HeadView{}, false
	}
	e := q.entries[0]
	frag := e.currentFragment()
	return HeadView{
		Handle:              e.handle,
		Data:                frag.Data[e.byteOff:],
		IsLastFragment:      e.isLastFragment(),
		EndsInLiteralHeader: frag.EndsInLiteralHeader,
		LiteralNonSync:      frag.LiteralNonSync,
	}, true
}

// Advance moves the byte offset forward by n bytes already written.
// It never auto-advances past a literal boundary; that requires
// PromoteFragment, a flow-kernel decision.
func (q *SendQueue) Advance(n int) {
	if len(q.entries) == 0 {
		return
	}
	q.entries[0].byteOff += n
}

// HeadFragmentDone reports whether the current fragment has been
// fully written.
func (q *SendQueue) HeadFragmentDone() bool {
	if len(q.entries) == 0 {
		return false
	}
	return q.entries[0].fragmentExhausted()
}

// HeadIsLastFragment reports whether the current fragment is the
// head entry's last fragment.
func (q *SendQueue) HeadIsLastFragment() bool {
	if len(q.entries) == 0 {
		return false
	}
	return q.entries[0].isLastFragment()
}

// PromoteFragment moves the cursor to the start of the head entry's
// next fragment. Called once the flow kernel has decided it is
// permitted to proceed past a literal boundary.
func (q *SendQueue) PromoteFragment() {
	if len(q.entries) == 0 {
		return
	}
	q.entries[0].fragIdx++
	q.entries[0].byteOff = 0
}

// CompleteHead pops the head entry (its final fragment has been fully
// written) and returns its handle and originating message.
func (q *SendQueue) CompleteHead() (Handle, *wire.Message, bool) {
	if len(q.entries) == 0 {
		return 0, nil, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e.handle, e.message, true
}

// RejectHead discards the head entry (the peer refused a
// non-synchronizing literal, or gave a tagged BAD/NO while gating) and
// returns its handle and originating message.
func (q *SendQueue) RejectHead() (Handle, *wire.Message, bool) {
	return q.CompleteHead()
}

// Discard removes a not-yet-started (queued but not dispatched) entry
// by handle. Returns false if handle is the in-flight head (already
// began transmitting) or not found; the caller uses
// CancelAuthenticate/RejectHead for an in-flight entry instead.
func (q *SendQueue) Discard(h Handle) bool {
	for i, e := range q.entries {
		if e.handle != h {
			continue
		}
		if i == 0 && (e.fragIdx > 0 || e.byteOff > 0) {
			return false
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		return true
	}
	return false
}

// DiscardAll empties the queue and returns the handles removed, in
// enqueue order (used when the session closes).
func (q *SendQueue) DiscardAll() []Handle {
	handles := make([]Handle, 0, len(q.entries))
	for _, e := range q.entries {
		handles = append(handles, e.handle)
	}
	q.entries = nil
	return handles
}
