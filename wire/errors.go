package wire

import "fmt"

// ErrLiteralTooLarge reports an inbound literal announcement whose
// declared size exceeds the configured max_literal_size.
type ErrLiteralTooLarge struct {
	Size int64
	Max  int64
}

func (e *ErrLiteralTooLarge) Error() string {
	return fmt.Sprintf("imap: literal too large: %d bytes exceeds max_literal_size %d", e.Size, e.Max)
}

// ErrFrameTooLarge reports that the unconsumed receive buffer grew
// past the safety cap without yielding a message boundary.
type ErrFrameTooLarge struct {
	Buffered int
	Max      int64
}

func (e *ErrFrameTooLarge) Error() string {
	return fmt.Sprintf("imap: frame too large: %d bytes buffered without a terminator (max %d)", e.Buffered, e.Max)
}

// ErrMalformed reports a framing or grammar violation in an inbound
// message. It is always fatal for the session.
type ErrMalformed struct {
	Reason string
}

func (e *ErrMalformed) Error() string {
	return "imap: malformed message: " + e.Reason
}
