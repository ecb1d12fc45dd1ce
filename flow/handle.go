package flow

import "fmt"

// Handle is an opaque identifier assigned when the caller enqueues an
// outgoing message. Monotonically increasing within a side, never
// reused; used to correlate later Sent/Rejected/Completed events with
// the enqueue call.
type Handle uint64

// handleGen hands out monotonically increasing Handles, one per side.
type handleGen struct {
	next Handle
}

func (g *handleGen) next_() Handle {
	g.next++
	return g.next
}

// tagGenerator generates unique command tags, adapted from the
// teacher's client/command.go tagGenerator: same prefix+counter
// shape, without the atomic/mutex machinery a single-owner sans-I/O
// kernel doesn't need.
type tagGenerator struct {
	counter int
	prefix  string
}

func newTagGenerator(prefix string) *tagGenerator {
	return &tagGenerator{prefix: prefix}
}

func (g *tagGenerator) Next() string {
	g.counter++
	return fmt.Sprintf("%s%d", g.prefix, g.counter)
}
