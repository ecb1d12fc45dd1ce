package wire

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	imap "github.com/meszmate/imap-flow"
)

// Kind discriminates the shape of a parsed Message.
type Kind int

const (
	// KindCommand is a client command: "tag SP name [SP args] CRLF".
	KindCommand Kind = iota
	// KindStatus is a tagged or untagged status response:
	// "(tag|*) SP (OK|NO|BAD|BYE|PREAUTH) [SP [code] text] CRLF".
	KindStatus
	// KindData is untagged server data other than a status response:
	// "* [num SP] name [SP args] CRLF".
	KindData
	// KindContinuation is a continuation request/response: "+ [text] CRLF".
	KindContinuation
)

// Literal is an opaque byte run transmitted as an IMAP literal.
type Literal struct {
	Data    []byte
	NonSync bool // {n+} / {n}: literal was/should be sent without awaiting a continuation
	Binary  bool // ~{n}: binary literal (RFC 3516)
}

// Arg is a single command or response-data argument.
type Arg struct {
	Text    string   // atom or quoted-string content; unset for Nil/Literal/List
	Quoted  bool     // render Text as a quoted string rather than an atom
	Nil     bool     // the argument was NIL
	Literal *Literal // the argument was transmitted as a literal
	List    []Arg    // the argument was a parenthesized list
	IsList  bool     // true whenever List is meaningful, even if empty ("()")
}

// ArgAtom builds an unquoted atom argument.
func ArgAtom(s string) Arg { return Arg{Text: s} }

// ArgNil builds a NIL argument.
func ArgNil() Arg { return Arg{Nil: true} }

// ArgList builds a parenthesized list argument.
func ArgList(items ...Arg) Arg { return Arg{List: items, IsList: true} }

// ArgLiteral builds a synchronizing literal argument.
func ArgLiteral(data []byte) Arg { return Arg{Literal: &Literal{Data: data}} }

// ArgLiteralNonSync builds a non-synchronizing ({n+}) literal argument.
func ArgLiteralNonSync(data []byte) Arg { return Arg{Literal: &Literal{Data: data, NonSync: true}} }

// ArgString picks the cheapest encoding able to carry s verbatim: an
// atom, a quoted string, or (when s contains CR, LF, NUL, or non-ASCII
// bytes) a literal. Mirrors wire.Encoder.String's policy.
func ArgString(s string) Arg {
	if NeedsLiteral(s) {
		return Arg{Literal: &Literal{Data: []byte(s)}}
	}
	if NeedsQuoting(s) {
		return Arg{Text: s, Quoted: true}
	}
	return Arg{Text: s}
}

// Message is a fully-framed, fully-parsed IMAP command or response.
// Literal arguments have already been reassembled in full; a Message
// never straddles a fragment boundary.
type Message struct {
	Kind Kind

	// Tag is the command tag, or the tag of a tagged status response.
	// Empty for untagged status responses, data, and continuations.
	Tag string

	// Num is the leading sequence number of untagged data such as
	// "* 5 EXISTS", or nil when absent.
	Num *uint32

	// Name is the command name (KindCommand) or the data keyword
	// (KindData), upper-cased.
	Name string

	// Args holds the command/data arguments in order.
	Args []Arg

	// Status is set for KindStatus.
	Status imap.StatusResponseType
	// Code and CodeText are the optional response code and its
	// argument text, e.g. Code="CAPABILITY", CodeText="IMAP4rev1 IDLE".
	Code     imap.ResponseCode
	CodeText string

	// Text is the human-readable trailing text (status responses and
	// continuations).
	Text string
}

// NewCommand builds a client command message.
func NewCommand(tag, name string, args ...Arg) *Message {
	return &Message{Kind: KindCommand, Tag: tag, Name: strings.ToUpper(name), Args: args}
}

// NewStatus builds a tagged (tag != "") or untagged (tag == "") status response.
func NewStatus(tag string, status imap.StatusResponseType, code imap.ResponseCode, codeText, text string) *Message {
	return &Message{Kind: KindStatus, Tag: tag, Status: status, Code: code, CodeText: codeText, Text: text}
}

// NewData builds untagged server data, optionally prefixed by a
// sequence number (pass num=nil to omit it).
func NewData(num *uint32, name string, args ...Arg) *Message {
	return &Message{Kind: KindData, Num: num, Name: strings.ToUpper(name), Args: args}
}

// NewContinuation builds a continuation request/response.
func NewContinuation(text string) *Message {
	return &Message{Kind: KindContinuation, Text: text}
}

// IsOK reports whether a KindStatus message carries OK.
func (m *Message) IsOK() bool { return m.Kind == KindStatus && m.Status == imap.StatusResponseTypeOK }

// AsError converts a non-OK KindStatus message into an *imap.IMAPError.
func (m *Message) AsError() error {
	if !m.IsOK() {
		return &imap.IMAPError{StatusResponse: &imap.StatusResponse{
			Type: m.Status,
			Code: m.Code,
			Text: m.Text,
		}}
	}
	return nil
}

// Fragment is a serialized byte run for one outgoing Message, split at
// literal boundaries: a message with K non-synchronizing-unaware
// literals becomes K+1 fragments.
type Fragment struct {
	// Data is this fragment's bytes.
	Data []byte
	// EndsInLiteralHeader is true when Data ends immediately after a
	// literal announcement header ("{n}\r\n" or "{n+}\r\n"); the next
	// fragment is that literal's raw content followed by whatever
	// comes after it in the message.
	EndsInLiteralHeader bool
	// LiteralNonSync is valid when EndsInLiteralHeader is true.
	LiteralNonSync bool
}

// Parse parses one fully-framed message (as produced by Framer.Take,
// including its trailing CRLF/LF) into a Message.
func Parse(raw []byte) (*Message, error) {
	line := trimTerminator(raw)
	d := NewDecoder(bytes.NewReader(line))

	first, err := d.PeekByte()
	if err != nil {
		return nil, &ErrMalformed{Reason: "empty message"}
	}
	if first == '+' {
		if err := d.ExpectByte('+'); err != nil {
			return nil, &ErrMalformed{Reason: err.Error()}
		}
		text := ""
		if err := d.ReadSP(); err == nil {
			text, _ = readRest(d)
		}
		return NewContinuation(text), nil
	}

	tag, err := readTagOrStar(d)
	if err != nil {
		return nil, &ErrMalformed{Reason: "invalid tag: " + err.Error()}
	}
	if err := d.ReadSP(); err != nil {
		return nil, &ErrMalformed{Reason: "missing SP after tag"}
	}

	var num *uint32
	if b, err := d.PeekByte(); err == nil && b >= '0' && b <= '9' {
		if n, err := d.ReadNumber(); err == nil {
			num = &n
			if err := d.ReadSP(); err != nil {
				return nil, &ErrMalformed{Reason: "missing SP after sequence number"}
			}
		}
	}

	name, err := d.ReadAtom()
	if err != nil {
		return nil, &ErrMalformed{Reason: "missing command/response name"}
	}

	if isStatusType(name) {
		msg := &Message{Kind: KindStatus, Tag: statusTag(tag), Status: imap.StatusResponseType(strings.ToUpper(name))}
		if err := d.ReadSP(); err == nil {
			if b, err := d.PeekByte(); err == nil && b == '[' {
				code, codeText, err := readCode(d)
				if err != nil {
					return nil, &ErrMalformed{Reason: err.Error()}
				}
				msg.Code = code
				msg.CodeText = codeText
				_ = d.ReadSP()
			}
			msg.Text, _ = readRest(d)
		}
		return msg, nil
	}

	if b, err := d.PeekByte(); err == nil && b == ' ' {
		_ = d.ReadSP()
	}
	args, err := readArgs(d)
	if err != nil {
		return nil, &ErrMalformed{Reason: err.Error()}
	}
	kind := KindCommand
	if tag == "*" {
		kind = KindData
	}
	return &Message{Kind: kind, Tag: tagOrEmpty(tag), Num: num, Name: strings.ToUpper(name), Args: args}, nil
}

// Serialize renders msg to the wire, split into fragments at every
// literal boundary.
func Serialize(msg *Message) ([]Fragment, error) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)

	switch msg.Kind {
	case KindCommand:
		e.Tag(msg.Tag).SP().Atom(msg.Name)
		if len(msg.Args) > 0 {
			e.SP()
			writeArgs(e, msg.Args)
		}
		e.CRLF()
	case KindStatus:
		tag := msg.Tag
		if tag == "" {
			tag = "*"
		}
		code := ""
		if msg.Code != "" {
			code = string(msg.Code)
			if msg.CodeText != "" {
				code += " " + msg.CodeText
			}
		}
		e.StatusResponse(tag, string(msg.Status), code, msg.Text)
	case KindData:
		e.Star()
		if msg.Num != nil {
			e.Number(*msg.Num).SP()
		}
		e.Atom(msg.Name)
		if len(msg.Args) > 0 {
			e.SP()
			writeArgs(e, msg.Args)
		}
		e.CRLF()
	case KindContinuation:
		e.ContinuationRequest(msg.Text)
	default:
		return nil, fmt.Errorf("imap: unknown message kind %d", msg.Kind)
	}

	if err := e.Flush(); err != nil {
		return nil, err
	}
	return splitFragments(buf.Bytes()), nil
}

func writeArgs(e *Encoder, args []Arg) {
	for i, a := range args {
		if i > 0 {
			e.SP()
		}
		writeArg(e, a)
	}
}

func writeArg(e *Encoder, a Arg) {
	switch {
	case a.Literal != nil:
		if a.Literal.NonSync {
			e.LiteralNonSync(a.Literal.Data)
		} else {
			e.Literal(a.Literal.Data)
		}
	case a.Nil:
		e.Nil()
	case a.IsList:
		e.BeginList()
		writeArgs(e, a.List)
		e.EndList()
	case a.Quoted:
		e.QuotedString(a.Text)
	default:
		e.Atom(a.Text)
	}
}

// splitFragments cuts raw (our own well-formed serialized output) at
// every literal header boundary, reusing Framer's own literal
// detection so outbound and inbound framing agree on what a "literal
// boundary" is.
func splitFragments(raw []byte) []Fragment {
	f := NewFramer(true, int64(len(raw))+1, int64(len(raw))+1)
	f.Extend(raw)

	var frags []Fragment
	fragStart := 0
	for {
		outcome, err := f.Next()
		if err != nil {
			break
		}
		switch outcome {
		case OutcomeNeed:
			if fragStart < len(raw) {
				frags = append(frags, Fragment{Data: append([]byte(nil), raw[fragStart:]...)})
			}
			return frags
		case OutcomeLiteral:
			ann := f.Announce()
			frags = append(frags, Fragment{
				Data:                append([]byte(nil), raw[fragStart:f.off]...),
				EndsInLiteralHeader: true,
				LiteralNonSync:      ann.NonSync,
			})
			fragStart = f.off
		case OutcomeMessage:
			frags = append(frags, Fragment{Data: append([]byte(nil), raw[fragStart:f.off]...)})
			return frags
		}
	}
	if fragStart < len(raw) {
		frags = append(frags, Fragment{Data: append([]byte(nil), raw[fragStart:]...)})
	}
	return frags
}

func readArg(d *Decoder) (Arg, error) {
	b, err := d.PeekByte()
	if err != nil {
		return Arg{}, err
	}
	switch {
	case b == '(':
		var list []Arg
		err := d.ReadList(func() error {
			a, e := readArg(d)
			if e != nil {
				return e
			}
			list = append(list, a)
			return nil
		})
		return Arg{List: list, IsList: true}, err
	case b == '{' || b == '~':
		info, err := d.ReadLiteralInfo()
		if err != nil {
			return Arg{}, err
		}
		data := make([]byte, info.Size)
		if _, err := io.ReadFull(d.ReadLiteral(info.Size), data); err != nil {
			return Arg{}, err
		}
		return Arg{Literal: &Literal{Data: data, NonSync: info.NonSync, Binary: info.Binary}}, nil
	case b == '"':
		s, err := d.ReadQuotedString()
		return Arg{Text: s, Quoted: true}, err
	default:
		s, err := d.ReadAtom()
		if err != nil {
			return Arg{}, err
		}
		if strings.EqualFold(s, "NIL") {
			return Arg{Nil: true}, nil
		}
		return Arg{Text: s}, nil
	}
}

func readArgs(d *Decoder) ([]Arg, error) {
	var args []Arg
	for {
		b, err := d.PeekByte()
		if err != nil {
			return args, nil
		}
		if b == '\r' || b == '\n' {
			return args, nil
		}
		a, err := readArg(d)
		if err != nil {
			return args, err
		}
		args = append(args, a)

		b2, err := d.PeekByte()
		if err != nil || b2 != ' ' {
			return args, nil
		}
		_ = d.ReadSP()
	}
}

func readCode(d *Decoder) (imap.ResponseCode, string, error) {
	if err := d.ExpectByte('['); err != nil {
		return "", "", err
	}
	name, err := d.ReadAtom()
	if err != nil {
		return "", "", err
	}
	var parts []string
	for {
		b, err := d.PeekByte()
		if err != nil {
			return "", "", err
		}
		if b == ']' {
			_ = d.ExpectByte(']')
			break
		}
		if err := d.ReadSP(); err != nil {
			return "", "", err
		}
		tok, err := d.ReadAtom()
		if err != nil {
			return "", "", err
		}
		parts = append(parts, tok)
	}
	return imap.ResponseCode(strings.ToUpper(name)), strings.Join(parts, " "), nil
}

func readTagOrStar(d *Decoder) (string, error) {
	b, err := d.PeekByte()
	if err != nil {
		return "", err
	}
	if b == '*' {
		if err := d.ExpectByte('*'); err != nil {
			return "", err
		}
		return "*", nil
	}
	return d.ReadAtom()
}

func isStatusType(name string) bool {
	switch strings.ToUpper(name) {
	case "OK", "NO", "BAD", "BYE", "PREAUTH":
		return true
	default:
		return false
	}
}

func statusTag(tag string) string {
	if tag == "*" {
		return ""
	}
	return tag
}

func tagOrEmpty(tag string) string {
	if tag == "*" {
		return ""
	}
	return tag
}

// readRest reads whatever is left of d's underlying reader as a
// string. Used for the free-text tail of status responses and
// continuations, which never contain further structure.
func readRest(d *Decoder) (string, error) {
	b, err := io.ReadAll(d.r)
	return string(b), err
}

func trimTerminator(raw []byte) []byte {
	n := len(raw)
	if n >= 2 && raw[n-2] == '\r' && raw[n-1] == '\n' {
		return raw[:n-2]
	}
	if n >= 1 && raw[n-1] == '\n' {
		return raw[:n-1]
	}
	return raw
}
