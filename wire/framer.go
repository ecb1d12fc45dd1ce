package wire

// Outcome is the result of a single Framer.Next call.
type Outcome int

const (
	// OutcomeNeed indicates the framer needs more bytes before it can
	// make progress; call Extend and try again.
	OutcomeNeed Outcome = iota
	// OutcomeLiteral indicates the framer consumed a literal
	// announcement header ("{n}\r\n" or "{n+}\r\n") and is now
	// waiting to skip n raw octets before it can resume scanning.
	OutcomeLiteral
	// OutcomeMessage indicates a complete, framed message is
	// available via Framer.Take.
	OutcomeMessage
)

// LiteralAnnounce describes a literal header the framer just crossed.
type LiteralAnnounce struct {
	Size    int64
	NonSync bool
	Binary  bool
}

// Framer performs literal-aware message-boundary scanning over a
// growable byte buffer, without interpreting the grammar inside a
// line. It answers exactly one question per call: "is there a
// complete message (with all embedded literals) at the front of the
// buffer yet?"
//
// The accumulate-then-retry shape is grounded in streaming parsers
// that buffer partial input and resume on the next Extend rather than
// blocking on an io.Reader.
type Framer struct {
	buf []byte // unconsumed bytes, always starting at a message boundary
	off int    // bytes of buf already scanned/accounted for in the in-progress message

	litRemaining    int64 // >0 while skipping a literal's raw octets
	pendingAnnounce LiteralAnnounce
	relaxedCRLF     bool
	maxLiteral      int64
	maxFrame        int64
}

// NewFramer creates a Framer. maxLiteral bounds an individual literal
// announcement (spec's max_literal_size); maxFrame bounds the total
// unconsumed buffer (the safety cap against unbounded growth).
func NewFramer(relaxedCRLF bool, maxLiteral, maxFrame int64) *Framer {
	return &Framer{
		relaxedCRLF: relaxedCRLF,
		maxLiteral:  maxLiteral,
		maxFrame:    maxFrame,
	}
}

// Extend appends bytes to the internal buffer.
func (f *Framer) Extend(b []byte) {
	f.buf = append(f.buf, b...)
}

// Buffered returns the number of unconsumed bytes.
func (f *Framer) Buffered() int { return len(f.buf) }

// Next attempts to make progress. On OutcomeLiteral, call Announce to
// retrieve the literal's size. On OutcomeMessage, call Take to
// retrieve (and consume) the framed message bytes.
func (f *Framer) Next() (Outcome, error) {
	for {
		if f.litRemaining > 0 {
			avail := int64(len(f.buf) - f.off)
			if avail < f.litRemaining {
				f.off = len(f.buf)
				f.litRemaining -= avail
				return OutcomeNeed, nil
			}
			f.off += int(f.litRemaining)
			f.litRemaining = 0
			continue
		}

		idx, termLen, err := f.findTerminator()
		if err != nil {
			return OutcomeNeed, err
		}
		if idx < 0 {
			if int64(len(f.buf)) > f.maxFrame {
				return OutcomeNeed, &ErrFrameTooLarge{Buffered: len(f.buf), Max: f.maxFrame}
			}
			return OutcomeNeed, nil
		}

		line := f.buf[f.off:idx]
		if size, nonSync, binary, ok := parseTrailingLiteral(line); ok {
			if size > f.maxLiteral {
				return OutcomeNeed, &ErrLiteralTooLarge{Size: size, Max: f.maxLiteral}
			}
			f.off = idx + termLen
			f.litRemaining = size
			f.pendingAnnounce = LiteralAnnounce{Size: size, NonSync: nonSync, Binary: binary}
			return OutcomeLiteral, nil
		}

		f.off = idx + termLen
		return OutcomeMessage, nil
	}
}

// Announce returns the literal just crossed (valid only immediately
// after Next returned OutcomeLiteral).
func (f *Framer) Announce() LiteralAnnounce { return f.pendingAnnounce }

// Take returns the framed message bytes (valid only immediately after
// Next returned OutcomeMessage) and advances past them, compacting
// the internal buffer.
func (f *Framer) Take() []byte {
	msg := make([]byte, f.off)
	copy(msg, f.buf[:f.off])
	f.buf = append([]byte(nil), f.buf[f.off:]...)
	f.off = 0
	return msg
}

// findTerminator looks for the next line terminator starting at
// f.off. It returns the index of the terminator's first byte and its
// length (1 for a bare LF, 2 for CRLF), or idx<0 if none is buffered
// yet. A bare LF when relaxedCRLF is false is a fatal parse error.
func (f *Framer) findTerminator() (idx int, termLen int, err error) {
	for i := f.off; i < len(f.buf); i++ {
		if f.buf[i] != '\n' {
			continue
		}
		if i > f.off && f.buf[i-1] == '\r' {
			return i - 1, 2, nil
		}
		if !f.relaxedCRLF {
			return -1, 0, &ErrMalformed{Reason: "bare LF in frame (crlf_relaxed is disabled)"}
		}
		return i, 1, nil
	}
	return -1, 0, nil
}

// parseTrailingLiteral reports whether line ends in a literal
// announcement ("{n}", "{n+}", "~{n}", "~{n+}") and, if so, its size
// and synchronization/binary discipline.
func parseTrailingLiteral(line []byte) (size int64, nonSync, binary bool, ok bool) {
	if len(line) == 0 || line[len(line)-1] != '}' {
		return 0, false, false, false
	}
	end := len(line) - 1
	start := end
	nonSync = false
	if start > 0 && line[start-1] == '+' {
		nonSync = true
		start--
	}
	digitsEnd := start
	for start > 0 && line[start-1] >= '0' && line[start-1] <= '9' {
		start--
	}
	if start == digitsEnd {
		return 0, false, false, false // no digits
	}
	if start == 0 || line[start-1] != '{' {
		return 0, false, false, false
	}
	braceIdx := start - 1
	binary = braceIdx > 0 && line[braceIdx-1] == '~'

	var n int64
	for _, c := range line[start:digitsEnd] {
		n = n*10 + int64(c-'0')
	}
	return n, nonSync, binary, true
}
