package client

import (
	"net/mail"
	"strconv"
	"strings"
	"time"

	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/wire"
)

// argText returns a's text content for atoms and quoted strings, or ""
// for anything else (NIL, list, literal).
func argText(a wire.Arg) string {
	if a.Nil {
		return ""
	}
	return a.Text
}

func argLiteralText(a wire.Arg) string {
	if a.Literal != nil {
		return string(a.Literal.Data)
	}
	return argText(a)
}

func parseFlags(a wire.Arg) []imap.Flag {
	if !a.IsList {
		return nil
	}
	flags := make([]imap.Flag, 0, len(a.List))
	for _, item := range a.List {
		flags = append(flags, imap.Flag(argText(item)))
	}
	return flags
}

func parseAddressList(a wire.Arg) []*imap.Address {
	if a.Nil || !a.IsList {
		return nil
	}
	addrs := make([]*imap.Address, 0, len(a.List))
	for _, item := range a.List {
		if !item.IsList || len(item.List) < 4 {
			continue
		}
		addrs = append(addrs, &imap.Address{
			Name:    argText(item.List[0]),
			Mailbox: argText(item.List[2]),
			Host:    argText(item.List[3]),
		})
	}
	return addrs
}

// parseEnvelope parses an ENVELOPE fetch item per RFC 3501 section 7.4.2:
// a 10-element parenthesized list (date subject from sender reply-to to
// cc bcc in-reply-to message-id).
func parseEnvelope(a wire.Arg) *imap.Envelope {
	if a.Nil || !a.IsList || len(a.List) < 10 {
		return nil
	}
	env := &imap.Envelope{
		Subject:   argText(a.List[1]),
		From:      parseAddressList(a.List[2]),
		Sender:    parseAddressList(a.List[3]),
		ReplyTo:   parseAddressList(a.List[4]),
		To:        parseAddressList(a.List[5]),
		Cc:        parseAddressList(a.List[6]),
		Bcc:       parseAddressList(a.List[7]),
		InReplyTo: argText(a.List[8]),
		MessageID: argText(a.List[9]),
	}
	if dateStr := argText(a.List[0]); dateStr != "" {
		if t, err := mail.ParseDate(dateStr); err == nil {
			env.Date = t
		}
	}
	return env
}

// parseBodyStructureArg parses a BODY/BODYSTRUCTURE fetch item,
// recursing into multipart children. Extended fields, present only for
// BODYSTRUCTURE and not plain BODY, are read when enough trailing
// elements remain to hold them.
func parseBodyStructureArg(a wire.Arg) *imap.BodyStructure {
	if a.Nil || !a.IsList || len(a.List) == 0 {
		return nil
	}
	if a.List[0].IsList {
		return parseMultipartBody(a.List)
	}
	return parseSinglepartBody(a.List)
}

func parseMultipartBody(items []wire.Arg) *imap.BodyStructure {
	bs := &imap.BodyStructure{Type: "multipart"}
	i := 0
	for i < len(items) && items[i].IsList {
		if child := parseBodyStructureArg(items[i]); child != nil {
			bs.Children = append(bs.Children, *child)
		}
		i++
	}
	if i < len(items) {
		bs.Subtype = argText(items[i])
		i++
	}
	if i < len(items) {
		bs.Params = parseParamList(items[i])
		i++
	}
	if i < len(items) {
		bs.Disposition, bs.DispositionParams = parseDisposition(items[i])
		i++
	}
	if i < len(items) {
		bs.Language = parseLanguage(items[i])
		i++
	}
	if i < len(items) {
		bs.Location = argText(items[i])
	}
	return bs
}

func parseSinglepartBody(items []wire.Arg) *imap.BodyStructure {
	bs := &imap.BodyStructure{}
	get := func(i int) wire.Arg {
		if i < len(items) {
			return items[i]
		}
		return wire.Arg{Nil: true}
	}
	bs.Type = argText(get(0))
	bs.Subtype = argText(get(1))
	bs.Params = parseParamList(get(2))
	bs.ID = argText(get(3))
	bs.Description = argText(get(4))
	bs.Encoding = argText(get(5))
	if n, err := strconv.ParseUint(argText(get(6)), 10, 32); err == nil {
		bs.Size = uint32(n)
	}

	next := 7
	switch {
	case strings.EqualFold(bs.Type, "message") && strings.EqualFold(bs.Subtype, "rfc822"):
		bs.Envelope = parseEnvelope(get(next))
		bs.BodyStructure = parseBodyStructureArg(get(next + 1))
		if n, err := strconv.ParseUint(argText(get(next+2)), 10, 32); err == nil {
			bs.Lines = uint32(n)
		}
		next += 3
	case strings.EqualFold(bs.Type, "text"):
		if n, err := strconv.ParseUint(argText(get(next)), 10, 32); err == nil {
			bs.Lines = uint32(n)
		}
		next++
	}

	if i := next; i < len(items) {
		bs.MD5 = argText(get(i))
	}
	if i := next + 1; i < len(items) {
		bs.Disposition, bs.DispositionParams = parseDisposition(get(i))
	}
	if i := next + 2; i < len(items) {
		bs.Language = parseLanguage(get(i))
	}
	if i := next + 3; i < len(items) {
		bs.Location = argText(get(i))
	}
	return bs
}

func parseParamList(a wire.Arg) map[string]string {
	if a.Nil || !a.IsList || len(a.List) == 0 {
		return nil
	}
	params := make(map[string]string, len(a.List)/2)
	for i := 0; i+1 < len(a.List); i += 2 {
		params[strings.ToLower(argText(a.List[i]))] = argText(a.List[i+1])
	}
	return params
}

func parseDisposition(a wire.Arg) (string, map[string]string) {
	if a.Nil || !a.IsList || len(a.List) < 1 {
		return "", nil
	}
	disp := argText(a.List[0])
	var params map[string]string
	if len(a.List) > 1 {
		params = parseParamList(a.List[1])
	}
	return disp, params
}

func parseLanguage(a wire.Arg) []string {
	switch {
	case a.Nil:
		return nil
	case a.IsList:
		langs := make([]string, 0, len(a.List))
		for _, item := range a.List {
			langs = append(langs, argText(item))
		}
		return langs
	default:
		if a.Text == "" {
			return nil
		}
		return []string{a.Text}
	}
}

func parseInternalDate(a wire.Arg) time.Time {
	t, _ := time.Parse(imap.InternalDateLayout, argText(a))
	return t
}

// parseFetchMessage assembles a FetchMessageBuffer from one FETCH
// response's flat (name value name value ...) item list.
func parseFetchMessage(seqNum uint32, items []wire.Arg) *imap.FetchMessageBuffer {
	msg := &imap.FetchMessageBuffer{SeqNum: seqNum}
	for i := 0; i+1 < len(items); i += 2 {
		name := strings.ToUpper(argText(items[i]))
		val := items[i+1]
		switch {
		case name == "FLAGS":
			msg.Flags = parseFlags(val)
		case name == "UID":
			if n, err := strconv.ParseUint(argText(val), 10, 32); err == nil {
				msg.UID = imap.UID(n)
			}
		case name == "INTERNALDATE":
			msg.InternalDate = parseInternalDate(val)
		case name == "RFC822.SIZE":
			if n, err := strconv.ParseInt(argText(val), 10, 64); err == nil {
				msg.RFC822Size = n
			}
		case name == "ENVELOPE":
			msg.Envelope = parseEnvelope(val)
		case name == "BODYSTRUCTURE" || name == "BODY":
			msg.BodyStructure = parseBodyStructureArg(val)
		case name == "MODSEQ":
			if val.IsList && len(val.List) == 1 {
				if n, err := strconv.ParseUint(argText(val.List[0]), 10, 64); err == nil {
					msg.ModSeq = n
				}
			}
		case name == "EMAILID":
			msg.EmailID = argText(val)
		case name == "THREADID":
			msg.ThreadID = argText(val)
		case strings.HasPrefix(name, "BODY[") || strings.HasPrefix(name, "BODY.PEEK["):
			if msg.BodySection == nil {
				msg.BodySection = make(map[string][]byte)
			}
			msg.BodySection[sectionNameFromItem(name)] = []byte(argLiteralText(val))
		case strings.HasPrefix(name, "BINARY["):
			if msg.BinarySection == nil {
				msg.BinarySection = make(map[string][]byte)
			}
			msg.BinarySection[sectionNameFromItem(name)] = []byte(argLiteralText(val))
		}
	}
	return msg
}

// sectionNameFromItem strips the BODY[...]/BODY.PEEK[...]/BINARY[...]
// wrapper down to the bracketed section specifier, e.g.
// "BODY[1.TEXT]" -> "1.TEXT".
func sectionNameFromItem(name string) string {
	start := strings.IndexByte(name, '[')
	end := strings.LastIndexByte(name, ']')
	if start < 0 || end <= start {
		return name
	}
	return name[start+1 : end]
}
