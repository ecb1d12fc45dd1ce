package server

import (
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/flow"
	"github.com/meszmate/imap-flow/wire"
)

// ResponseEncoder enqueues untagged server responses onto a
// flow.Kernel's response queue. Unlike the blocking writer it
// replaces, it never touches a net.Conn directly: Conn.Progress drains
// the queue and hands the caller bytes to write.
type ResponseEncoder struct {
	mu     sync.Mutex
	kernel *flow.Kernel
}

// NewResponseEncoder creates a new ResponseEncoder over kernel.
func NewResponseEncoder(kernel *flow.Kernel) *ResponseEncoder {
	return &ResponseEncoder{kernel: kernel}
}

// data enqueues an untagged data response.
func (re *ResponseEncoder) data(num *uint32, name string, args ...wire.Arg) {
	re.mu.Lock()
	defer re.mu.Unlock()
	_, _ = re.kernel.EnqueueResponse(wire.NewData(num, name, args...))
}

// argFlags builds the Arg list for a parenthesized flag list.
func argFlags(flags []imap.Flag) wire.Arg {
	args := make([]wire.Arg, len(flags))
	for i, f := range flags {
		args[i] = wire.ArgAtom(string(f))
	}
	return wire.ArgList(args...)
}

func argMailboxName(name string) wire.Arg {
	if strings.EqualFold(name, "INBOX") {
		return wire.ArgAtom("INBOX")
	}
	return wire.ArgString(name)
}

func argNString(s string, isNil bool) wire.Arg {
	if isNil || s == "" {
		return wire.ArgNil()
	}
	return wire.ArgString(s)
}

func argDateTime(t time.Time) wire.Arg {
	if t.IsZero() {
		return wire.ArgNil()
	}
	return wire.Arg{Text: t.Format(imap.InternalDateLayout), Quoted: true}
}

// FetchWriter writes FETCH response data.
type FetchWriter struct {
	enc     *ResponseEncoder
	uidOnly bool
}

// NewFetchWriter creates a new FetchWriter.
func NewFetchWriter(enc *ResponseEncoder) *FetchWriter {
	return &FetchWriter{enc: enc}
}

// SetUIDOnly enables UIDONLY mode where responses use UIDFETCH with UIDs
// instead of FETCH with sequence numbers (RFC 9586).
func (w *FetchWriter) SetUIDOnly(enabled bool) {
	w.uidOnly = enabled
}

// WriteFlags writes a FETCH FLAGS response.
// In UIDONLY mode, seqNum is treated as a UID and UIDFETCH is used.
func (w *FetchWriter) WriteFlags(seqNum uint32, flags []imap.Flag) {
	keyword := "FETCH"
	if w.uidOnly {
		keyword = "UIDFETCH"
	}
	n := seqNum
	w.enc.data(&n, keyword, wire.ArgAtom("FLAGS"), argFlags(flags))
}

// WriteFetchData writes a complete FETCH response for a message.
// In UIDONLY mode, uses the UID as the message number and UIDFETCH as the keyword.
func (w *FetchWriter) WriteFetchData(data *imap.FetchMessageData) {
	num := data.SeqNum
	keyword := "FETCH"
	if w.uidOnly {
		num = uint32(data.UID)
		keyword = "UIDFETCH"
	}

	var items []wire.Arg
	item := func(name string, arg wire.Arg) {
		items = append(items, wire.ArgAtom(name), arg)
	}

	if data.Flags != nil {
		item("FLAGS", argFlags(data.Flags))
	}
	if data.UID != 0 {
		item("UID", wire.ArgAtom(strconv.FormatUint(uint64(data.UID), 10)))
	}
	if data.RFC822Size != 0 {
		item("RFC822.SIZE", wire.ArgAtom(strconv.FormatInt(data.RFC822Size, 10)))
	}
	if !data.InternalDate.IsZero() {
		item("INTERNALDATE", argDateTime(data.InternalDate))
	}
	if data.Envelope != nil {
		item("ENVELOPE", envelopeArg(data.Envelope))
	}
	if data.BodyStructure != nil {
		item("BODYSTRUCTURE", bodyStructureArg(data.BodyStructure))
	}
	if data.ModSeq != 0 {
		item("MODSEQ", wire.ArgList(wire.ArgAtom(strconv.FormatUint(data.ModSeq, 10))))
	}
	if data.EmailID != "" {
		item("EMAILID", wire.ArgList(wire.ArgString(data.EmailID)))
	}
	if data.ThreadID != "" {
		item("THREADID", wire.ArgList(wire.ArgString(data.ThreadID)))
	}
	if data.SaveDate != nil {
		item("SAVEDATE", argDateTime(*data.SaveDate))
	}
	if data.Preview != "" || data.PreviewNIL {
		item("PREVIEW", argNString(data.Preview, data.PreviewNIL && data.Preview == ""))
	}
	for section, reader := range data.BodySection {
		name := "BODY[" + sectionSpec(section) + "]"
		body, _ := io.ReadAll(reader.Reader)
		items = append(items, wire.ArgAtom(name), wire.ArgLiteral(body))
	}
	for section, reader := range data.BinarySection {
		name := "BINARY[" + formatPart(section.Part) + "]"
		body, _ := io.ReadAll(reader.Reader)
		items = append(items, wire.ArgAtom(name), wire.Arg{Literal: &wire.Literal{Data: body, Binary: true}})
	}
	for _, bs := range data.BinarySizeSection {
		item("BINARY.SIZE["+formatPart(bs.Part)+"]", wire.ArgAtom(strconv.FormatUint(uint64(bs.Size), 10)))
	}

	w.enc.data(&num, keyword, wire.ArgList(items...))
}

// sectionSpec reconstructs a BODY[] section specifier string from a
// FetchItemBodySection, e.g. "1.HEADER.FIELDS (From To)".
func sectionSpec(s *imap.FetchItemBodySection) string {
	var b strings.Builder
	if len(s.Part) > 0 {
		b.WriteString(formatPart(s.Part))
	}
	if s.Specifier != "" {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.Specifier)
	}
	if len(s.Fields) > 0 {
		b.WriteByte(' ')
		b.WriteByte('(')
		b.WriteString(strings.Join(s.Fields, " "))
		b.WriteByte(')')
	}
	return b.String()
}

func envelopeArg(env *imap.Envelope) wire.Arg {
	items := []wire.Arg{
		argDateOrNil(env.Date),
		argNString(env.Subject, false),
		addressListArg(env.From),
		addressListArg(env.Sender),
		addressListArg(env.ReplyTo),
		addressListArg(env.To),
		addressListArg(env.Cc),
		addressListArg(env.Bcc),
		argNString(env.InReplyTo, false),
		argNString(env.MessageID, false),
	}
	return wire.ArgList(items...)
}

func argDateOrNil(t time.Time) wire.Arg {
	if t.IsZero() {
		return wire.ArgNil()
	}
	return wire.Arg{Text: t.Format(time.RFC822Z), Quoted: true}
}

func addressListArg(addrs []*imap.Address) wire.Arg {
	if len(addrs) == 0 {
		return wire.ArgNil()
	}
	items := make([]wire.Arg, len(addrs))
	for i, a := range addrs {
		items[i] = wire.ArgList(
			argNString(a.Name, false),
			wire.ArgNil(),
			argNString(a.Mailbox, false),
			argNString(a.Host, false),
		)
	}
	return wire.ArgList(items...)
}

// bodyStructureArg renders an imap.BodyStructure tree as a BODYSTRUCTURE
// argument list (RFC 3501 §7.4.2).
func bodyStructureArg(bs *imap.BodyStructure) wire.Arg {
	if bs.IsMultipart() {
		items := make([]wire.Arg, 0, len(bs.Children)+6)
		for i := range bs.Children {
			items = append(items, bodyStructureArg(&bs.Children[i]))
		}
		items = append(items, argNString(bs.Subtype, false))
		items = append(items, bodyExtensionArgs(bs)...)
		return wire.ArgList(items...)
	}

	items := []wire.Arg{
		argNString(bs.Type, false),
		argNString(bs.Subtype, false),
		paramListArg(bs.Params),
		argNString(bs.ID, false),
		argNString(bs.Description, false),
		argNString(bs.Encoding, false),
		wire.ArgAtom(strconv.FormatUint(uint64(bs.Size), 10)),
	}
	if strings.EqualFold(bs.Type, "message") && strings.EqualFold(bs.Subtype, "rfc822") {
		if bs.Envelope != nil {
			items = append(items, envelopeArg(bs.Envelope))
		} else {
			items = append(items, wire.ArgNil())
		}
		if bs.BodyStructure != nil {
			items = append(items, bodyStructureArg(bs.BodyStructure))
		} else {
			items = append(items, wire.ArgNil())
		}
		items = append(items, wire.ArgAtom(strconv.FormatUint(uint64(bs.Lines), 10)))
	} else if strings.EqualFold(bs.Type, "text") {
		items = append(items, wire.ArgAtom(strconv.FormatUint(uint64(bs.Lines), 10)))
	}
	items = append(items, bodyExtensionArgs(bs)...)
	return wire.ArgList(items...)
}

// bodyExtensionArgs appends the extension fields common to body-ext-1part
// and body-ext-mpart: MD5 (1-part only), disposition, language, location.
func bodyExtensionArgs(bs *imap.BodyStructure) []wire.Arg {
	var items []wire.Arg
	if !bs.IsMultipart() {
		items = append(items, argNString(bs.MD5, false))
	}
	if bs.Disposition != "" {
		items = append(items, wire.ArgList(wire.ArgString(bs.Disposition), paramListArg(bs.DispositionParams)))
	} else {
		items = append(items, wire.ArgNil())
	}
	if len(bs.Language) > 0 {
		langs := make([]wire.Arg, len(bs.Language))
		for i, l := range bs.Language {
			langs[i] = wire.ArgString(l)
		}
		items = append(items, wire.ArgList(langs...))
	} else {
		items = append(items, wire.ArgNil())
	}
	items = append(items, argNString(bs.Location, false))
	return items
}

func paramListArg(params map[string]string) wire.Arg {
	if len(params) == 0 {
		return wire.ArgNil()
	}
	items := make([]wire.Arg, 0, len(params)*2)
	for k, v := range params {
		items = append(items, wire.ArgString(k), wire.ArgString(v))
	}
	return wire.ArgList(items...)
}

// formatPart formats a MIME part number list (e.g., []int{1, 2}) as "1.2".
func formatPart(part []int) string {
	if len(part) == 0 {
		return ""
	}
	s := make([]string, len(part))
	for i, p := range part {
		s[i] = strconv.Itoa(p)
	}
	return strings.Join(s, ".")
}

// ListWriter writes LIST responses.
type ListWriter struct {
	enc *ResponseEncoder
}

// NewListWriter creates a new ListWriter.
func NewListWriter(enc *ResponseEncoder) *ListWriter {
	return &ListWriter{enc: enc}
}

// WriteList writes a single LIST response.
func (w *ListWriter) WriteList(data *imap.ListData) {
	attrs := make([]wire.Arg, len(data.Attrs))
	for i, a := range data.Attrs {
		attrs[i] = wire.ArgAtom(string(a))
	}
	delim := wire.ArgNil()
	if data.Delim != 0 {
		delim = wire.Arg{Text: string(data.Delim), Quoted: true}
	}

	args := []wire.Arg{wire.ArgList(attrs...), delim, argMailboxName(data.Mailbox)}
	if ext := extendedListArg(data); ext != nil {
		args = append(args, *ext)
	}
	w.enc.data(nil, "LIST", args...)

	if data.Status != nil {
		w.writeStatus(data.Mailbox, data.Status)
	}
}

func extendedListArg(data *imap.ListData) *wire.Arg {
	if !hasExtendedData(data) {
		return nil
	}
	var items []wire.Arg
	if len(data.ChildInfo) > 0 {
		ci := make([]wire.Arg, len(data.ChildInfo))
		for i, c := range data.ChildInfo {
			ci[i] = wire.Arg{Text: c, Quoted: true}
		}
		items = append(items, wire.Arg{Text: "CHILDINFO", Quoted: true}, wire.ArgList(ci...))
	}
	if data.OldName != "" {
		items = append(items, wire.Arg{Text: "OLDNAME", Quoted: true}, wire.ArgList(argMailboxName(data.OldName)))
	}
	if data.MyRights != "" {
		items = append(items, wire.Arg{Text: "MYRIGHTS", Quoted: true}, wire.Arg{Text: data.MyRights, Quoted: true})
	}
	if data.Metadata != nil {
		var mItems []wire.Arg
		for k, v := range data.Metadata {
			mItems = append(mItems, wire.Arg{Text: k, Quoted: true}, wire.Arg{Text: v, Quoted: true})
		}
		items = append(items, wire.Arg{Text: "METADATA", Quoted: true}, wire.ArgList(mItems...))
	}
	a := wire.ArgList(items...)
	return &a
}

func (w *ListWriter) writeStatus(mailbox string, data *imap.StatusData) {
	var items []wire.Arg
	item := func(name string, val *uint32) {
		if val != nil {
			items = append(items, wire.ArgAtom(name), wire.ArgAtom(strconv.FormatUint(uint64(*val), 10)))
		}
	}
	item("MESSAGES", data.NumMessages)
	item("UIDNEXT", data.UIDNext)
	item("UIDVALIDITY", data.UIDValidity)
	item("UNSEEN", data.NumUnseen)
	item("RECENT", data.NumRecent)
	if data.Size != nil {
		items = append(items, wire.ArgAtom("SIZE"), wire.ArgAtom(strconv.FormatInt(*data.Size, 10)))
	}
	item("APPENDLIMIT", data.AppendLimit)
	item("DELETED", data.NumDeleted)
	if data.HighestModSeq != nil {
		items = append(items, wire.ArgAtom("HIGHESTMODSEQ"), wire.ArgAtom(strconv.FormatUint(*data.HighestModSeq, 10)))
	}
	if data.MailboxID != "" {
		items = append(items, wire.ArgAtom("MAILBOXID"), wire.ArgList(wire.ArgString(data.MailboxID)))
	}
	w.enc.data(nil, "STATUS", argMailboxName(mailbox), wire.ArgList(items...))
}

// hasExtendedData returns true if any extended data fields are set in ListData.
func hasExtendedData(data *imap.ListData) bool {
	return len(data.ChildInfo) > 0 || data.OldName != "" || data.MyRights != "" || data.Metadata != nil
}

// UpdateWriter writes unsolicited updates.
type UpdateWriter struct {
	enc *ResponseEncoder
}

// NewUpdateWriter creates a new UpdateWriter.
func NewUpdateWriter(enc *ResponseEncoder) *UpdateWriter {
	return &UpdateWriter{enc: enc}
}

// WriteExists writes an EXISTS update.
func (w *UpdateWriter) WriteExists(num uint32) {
	w.enc.data(&num, "EXISTS")
}

// WriteExpunge writes an EXPUNGE update.
func (w *UpdateWriter) WriteExpunge(seqNum uint32) {
	w.enc.data(&seqNum, "EXPUNGE")
}

// WriteRecent writes a RECENT update.
func (w *UpdateWriter) WriteRecent(num uint32) {
	w.enc.data(&num, "RECENT")
}

// WriteFlags writes a FLAGS update (mailbox flags).
func (w *UpdateWriter) WriteFlags(flags []imap.Flag) {
	w.enc.data(nil, "FLAGS", argFlags(flags).List...)
}

// WriteMessageFlags writes updated flags for a message.
func (w *UpdateWriter) WriteMessageFlags(seqNum uint32, flags []imap.Flag) {
	w.enc.data(&seqNum, "FETCH", wire.ArgAtom("FLAGS"), argFlags(flags))
}

// ExpungeWriter writes EXPUNGE responses.
type ExpungeWriter struct {
	enc     *ResponseEncoder
	uidOnly bool
}

// NewExpungeWriter creates a new ExpungeWriter.
func NewExpungeWriter(enc *ResponseEncoder) *ExpungeWriter {
	return &ExpungeWriter{enc: enc}
}

// SetUIDOnly enables UIDONLY mode where VANISHED responses are emitted
// instead of EXPUNGE (RFC 9586). When enabled, the num parameter to
// WriteExpunge is treated as a UID.
func (w *ExpungeWriter) SetUIDOnly(enabled bool) {
	w.uidOnly = enabled
}

// WriteExpunge writes an EXPUNGE response for a sequence number.
// In UIDONLY mode, emits * VANISHED <uid> instead.
func (w *ExpungeWriter) WriteExpunge(seqNum uint32) {
	if w.uidOnly {
		w.enc.data(nil, "VANISHED", wire.ArgAtom(strconv.FormatUint(uint64(seqNum), 10)))
		return
	}
	w.enc.data(&seqNum, "EXPUNGE")
}

// MoveWriter writes MOVE response data (combines expunge + copy data).
type MoveWriter struct {
	expunge *ExpungeWriter
	enc     *ResponseEncoder

	mu       sync.Mutex
	copyData *imap.CopyData
}

// NewMoveWriter creates a new MoveWriter.
func NewMoveWriter(enc *ResponseEncoder) *MoveWriter {
	return &MoveWriter{
		expunge: NewExpungeWriter(enc),
		enc:     enc,
	}
}

// SetUIDOnly enables UIDONLY mode on the MoveWriter's expunge output,
// emitting VANISHED instead of EXPUNGE (RFC 9586).
func (w *MoveWriter) SetUIDOnly(enabled bool) {
	w.expunge.SetUIDOnly(enabled)
}

// WriteExpunge writes an EXPUNGE response.
func (w *MoveWriter) WriteExpunge(seqNum uint32) {
	w.expunge.WriteExpunge(seqNum)
}

// WriteCopyData records the copy UID data produced by the move, for the
// dispatching Conn to fold into the tagged OK [COPYUID ...] response
// once the command completes (the response code belongs on the tagged
// status line, not on an untagged response).
func (w *MoveWriter) WriteCopyData(data *imap.CopyData) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.copyData = data
}

// CopyData returns the copy UID data recorded by WriteCopyData, if any.
func (w *MoveWriter) CopyData() *imap.CopyData {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.copyData
}
