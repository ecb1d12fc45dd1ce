package server

import (
	"fmt"
	"strconv"
	"strings"

	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/wire"
)

// argCursor walks a flat []wire.Arg sequence the way the teacher's
// wire.Decoder walked raw bytes: one token at a time, SP-agnostic,
// since wire.Parse has already split the line into atoms/strings/
// literals/lists.
type argCursor struct {
	args []wire.Arg
	pos  int
}

func newArgCursor(args []wire.Arg) *argCursor {
	return &argCursor{args: args}
}

func (c *argCursor) done() bool {
	return c.pos >= len(c.args)
}

func (c *argCursor) peek() (wire.Arg, bool) {
	if c.done() {
		return wire.Arg{}, false
	}
	return c.args[c.pos], true
}

func (c *argCursor) next() (wire.Arg, bool) {
	a, ok := c.peek()
	if ok {
		c.pos++
	}
	return a, ok
}

// argText returns an Arg's textual content regardless of atom/quoted form.
func argText(a wire.Arg) string {
	if a.Literal != nil {
		return string(a.Literal.Data)
	}
	return a.Text
}

// atom consumes the next Arg and returns its text unchanged; fails if
// the next Arg is a list or NIL.
func (c *argCursor) atom() (string, error) {
	a, ok := c.next()
	if !ok {
		return "", fmt.Errorf("unexpected end of arguments")
	}
	if a.IsList || a.Nil {
		return "", fmt.Errorf("expected an atom, got a list or NIL")
	}
	return argText(a), nil
}

// list consumes the next Arg and returns its list contents.
func (c *argCursor) list() ([]wire.Arg, error) {
	a, ok := c.next()
	if !ok {
		return nil, fmt.Errorf("unexpected end of arguments")
	}
	if !a.IsList {
		return nil, fmt.Errorf("expected a parenthesized list")
	}
	return a.List, nil
}

func parseNumSet(s string, kind NumKind) (imap.NumSet, error) {
	if kind == NumKindUID {
		return imap.ParseUIDSet(s)
	}
	return imap.ParseSeqSet(s)
}

func parseFlagsArg(a wire.Arg) []imap.Flag {
	flags := make([]imap.Flag, 0, len(a.List))
	for _, item := range a.List {
		flags = append(flags, imap.Flag(argText(item)))
	}
	return flags
}

// parseStatusOptions parses a STATUS data-item list into imap.StatusOptions.
func parseStatusOptions(items []wire.Arg) *imap.StatusOptions {
	options := &imap.StatusOptions{}
	for _, item := range items {
		switch strings.ToUpper(argText(item)) {
		case "MESSAGES":
			options.NumMessages = true
		case "UIDNEXT":
			options.UIDNext = true
		case "UIDVALIDITY":
			options.UIDValidity = true
		case "UNSEEN":
			options.NumUnseen = true
		case "RECENT":
			options.NumRecent = true
		case "SIZE":
			options.Size = true
		case "APPENDLIMIT":
			options.AppendLimit = true
		case "DELETED":
			options.NumDeleted = true
		case "HIGHESTMODSEQ":
			options.HighestModSeq = true
		case "MAILBOXID":
			options.MailboxID = true
		}
	}
	return options
}

// parseStoreFlags parses the STORE action atom ("FLAGS"/"+FLAGS.SILENT"/...)
// plus the following flag list into an imap.StoreFlags.
func parseStoreFlags(action string, flagsArg wire.Arg) (*imap.StoreFlags, error) {
	sf := &imap.StoreFlags{}
	upper := strings.ToUpper(action)
	switch {
	case strings.HasPrefix(upper, "+FLAGS"):
		sf.Action = imap.StoreFlagsAdd
	case strings.HasPrefix(upper, "-FLAGS"):
		sf.Action = imap.StoreFlagsDel
	case strings.HasPrefix(upper, "FLAGS"):
		sf.Action = imap.StoreFlagsSet
	default:
		return nil, fmt.Errorf("invalid store action: %s", action)
	}
	if strings.HasSuffix(upper, ".SILENT") {
		sf.Silent = true
	}
	sf.Flags = parseFlagsArg(flagsArg)
	return sf, nil
}

// parseFetchOptions parses the FETCH item(s) argument (a macro atom, a
// single item atom, or a parenthesized list of items) into FetchOptions.
func parseFetchOptions(itemsArg wire.Arg, cur *argCursor) (*imap.FetchOptions, error) {
	options := &imap.FetchOptions{}
	if itemsArg.IsList {
		sub := newArgCursor(itemsArg.List)
		for !sub.done() {
			if err := parseSingleFetchItem(sub, options); err != nil {
				return nil, err
			}
		}
		return options, nil
	}
	if err := parseSingleFetchItemFromAtom(argText(itemsArg), cur, options); err != nil {
		return nil, err
	}
	return options, nil
}

func parseSingleFetchItem(cur *argCursor, options *imap.FetchOptions) error {
	item, err := cur.atom()
	if err != nil {
		return err
	}
	return parseSingleFetchItemFromAtom(item, cur, options)
}

func parseSingleFetchItemFromAtom(item string, cur *argCursor, options *imap.FetchOptions) error {
	upper := strings.ToUpper(item)
	switch {
	case upper == "ALL":
		options.Flags, options.InternalDate, options.RFC822Size, options.Envelope = true, true, true, true
	case upper == "FAST":
		options.Flags, options.InternalDate, options.RFC822Size = true, true, true
	case upper == "FULL":
		options.Flags, options.InternalDate, options.RFC822Size, options.Envelope, options.BodyStructure = true, true, true, true, true
	case upper == "ENVELOPE":
		options.Envelope = true
	case upper == "FLAGS":
		options.Flags = true
	case upper == "INTERNALDATE":
		options.InternalDate = true
	case upper == "RFC822.SIZE":
		options.RFC822Size = true
	case upper == "UID":
		options.UID = true
	case upper == "BODYSTRUCTURE":
		options.BodyStructure = true
	case upper == "MODSEQ":
		options.ModSeq = true
	case upper == "PREVIEW":
		options.Preview = true
	case upper == "EMAILID":
		options.EmailID = true
	case upper == "THREADID":
		options.ThreadID = true
	case strings.HasPrefix(upper, "BODY.PEEK["):
		section, err := parseBodySectionFromAtom(item, "BODY.PEEK[", true, cur)
		if err != nil {
			return err
		}
		options.BodySection = append(options.BodySection, section)
	case strings.HasPrefix(upper, "BODY["):
		section, err := parseBodySectionFromAtom(item, "BODY[", false, cur)
		if err != nil {
			return err
		}
		options.BodySection = append(options.BodySection, section)
	case upper == "BODY":
		options.BodyStructure = true
	case strings.HasPrefix(upper, "BINARY.SIZE["):
		options.BinarySizeSection = append(options.BinarySizeSection, parseBinaryPart(item[len("BINARY.SIZE["):]))
	case strings.HasPrefix(upper, "BINARY.PEEK["):
		options.BinarySection = append(options.BinarySection, &imap.FetchItemBinarySection{
			Part: parseBinaryPart(item[len("BINARY.PEEK["):]), Peek: true,
		})
	case strings.HasPrefix(upper, "BINARY["):
		options.BinarySection = append(options.BinarySection, &imap.FetchItemBinarySection{
			Part: parseBinaryPart(item[len("BINARY["):]),
		})
	case upper == "RFC822":
		options.BodySection = append(options.BodySection, &imap.FetchItemBodySection{})
	case upper == "RFC822.HEADER":
		options.BodySection = append(options.BodySection, &imap.FetchItemBodySection{Specifier: "HEADER", Peek: true})
	case upper == "RFC822.TEXT":
		options.BodySection = append(options.BodySection, &imap.FetchItemBodySection{Specifier: "TEXT"})
	}
	return nil
}

// parseBodySectionFromAtom reconstructs a BODY[]/BODY.PEEK[] section
// specifier. The trailing "]" never survives wire.Parse's tokenizer (it
// is not an atom character), so there is nothing to consume for it; a
// HEADER.FIELDS(.NOT) section's field list is the following Arg, since
// the list is what stops the atom scan at the embedded space.
func parseBodySectionFromAtom(item, prefix string, peek bool, cur *argCursor) (*imap.FetchItemBodySection, error) {
	spec := strings.ToUpper(item[len(prefix):])
	section := &imap.FetchItemBodySection{Peek: peek}
	switch {
	case spec == "":
	case spec == "HEADER":
		section.Specifier = "HEADER"
	case spec == "TEXT":
		section.Specifier = "TEXT"
	case spec == "MIME":
		section.Specifier = "MIME"
	case strings.HasPrefix(spec, "HEADER.FIELDS.NOT"):
		section.Specifier = "HEADER.FIELDS.NOT"
		section.NotFields = true
		fields, err := cur.list()
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			section.Fields = append(section.Fields, argText(f))
		}
	case strings.HasPrefix(spec, "HEADER.FIELDS"):
		section.Specifier = "HEADER.FIELDS"
		fields, err := cur.list()
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			section.Fields = append(section.Fields, argText(f))
		}
	default:
		section.Part = parseBinaryPart(spec)
	}
	return section, nil
}

func parseBinaryPart(s string) []int {
	if s == "" {
		return nil
	}
	fields := strings.Split(s, ".")
	part := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			continue
		}
		part = append(part, n)
	}
	return part
}

// parseSearchCriteria parses a flat Arg sequence of SEARCH keys
// (mirroring the teacher's decoder-driven parser one arg at a time
// instead of one byte at a time).
func parseSearchCriteria(cur *argCursor) (*imap.SearchCriteria, error) {
	criteria := &imap.SearchCriteria{}
	for !cur.done() {
		a, _ := cur.peek()
		if a.IsList {
			cur.pos++
			sub, err := parseSearchCriteria(newArgCursor(a.List))
			if err != nil {
				return nil, err
			}
			mergeSearchCriteria(criteria, sub)
			criteria.Not = append(criteria.Not, sub.Not...)
			continue
		}
		if err := parseOneCriterion(cur, criteria); err != nil {
			break
		}
	}
	return criteria, nil
}

// parseOneCriterion parses exactly one SEARCH key (and any operands it
// takes) from cur into criteria.
func parseOneCriterion(cur *argCursor, criteria *imap.SearchCriteria) error {
	key, err := cur.atom()
	if err != nil {
		return err
	}
	switch strings.ToUpper(key) {
	case "ALL":
	case "ANSWERED":
		criteria.Flag = append(criteria.Flag, imap.FlagAnswered)
	case "DELETED":
		criteria.Flag = append(criteria.Flag, imap.FlagDeleted)
	case "DRAFT":
		criteria.Flag = append(criteria.Flag, imap.FlagDraft)
	case "FLAGGED":
		criteria.Flag = append(criteria.Flag, imap.FlagFlagged)
	case "SEEN":
		criteria.Flag = append(criteria.Flag, imap.FlagSeen)
	case "RECENT":
		criteria.Flag = append(criteria.Flag, imap.FlagRecent)
	case "UNANSWERED":
		criteria.NotFlag = append(criteria.NotFlag, imap.FlagAnswered)
	case "UNDELETED":
		criteria.NotFlag = append(criteria.NotFlag, imap.FlagDeleted)
	case "UNDRAFT":
		criteria.NotFlag = append(criteria.NotFlag, imap.FlagDraft)
	case "UNFLAGGED":
		criteria.NotFlag = append(criteria.NotFlag, imap.FlagFlagged)
	case "UNSEEN":
		criteria.NotFlag = append(criteria.NotFlag, imap.FlagSeen)
	case "NEW":
		criteria.Flag = append(criteria.Flag, imap.FlagRecent)
		criteria.NotFlag = append(criteria.NotFlag, imap.FlagSeen)
	case "OLD":
		criteria.NotFlag = append(criteria.NotFlag, imap.FlagRecent)
	case "KEYWORD":
		kw, err := cur.atom()
		if err != nil {
			return err
		}
		criteria.Flag = append(criteria.Flag, imap.Flag(kw))
	case "UNKEYWORD":
		kw, err := cur.atom()
		if err != nil {
			return err
		}
		criteria.NotFlag = append(criteria.NotFlag, imap.Flag(kw))
	case "LARGER":
		n, err := cur.atom()
		if err != nil {
			return err
		}
		v, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return err
		}
		criteria.Larger = v
	case "SMALLER":
		n, err := cur.atom()
		if err != nil {
			return err
		}
		v, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return err
		}
		criteria.Smaller = v
	case "BODY":
		s, err := cur.atom()
		if err != nil {
			return err
		}
		criteria.Body = append(criteria.Body, s)
	case "TEXT":
		s, err := cur.atom()
		if err != nil {
			return err
		}
		criteria.Text = append(criteria.Text, s)
	case "SUBJECT", "FROM", "TO", "CC", "BCC":
		s, err := cur.atom()
		if err != nil {
			return err
		}
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{
			Key: strings.Title(strings.ToLower(key)), Value: s,
		})
	case "HEADER":
		name, err := cur.atom()
		if err != nil {
			return err
		}
		value, err := cur.atom()
		if err != nil {
			return err
		}
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{Key: name, Value: value})
	case "UID":
		s, err := cur.atom()
		if err != nil {
			return err
		}
		uidSet, err := imap.ParseUIDSet(s)
		if err != nil {
			return err
		}
		criteria.UID = uidSet
	case "NOT":
		sub := &imap.SearchCriteria{}
		if err := parseOneCriterion(cur, sub); err != nil {
			return err
		}
		criteria.Not = append(criteria.Not, *sub)
	default:
		if seqSet, err := imap.ParseSeqSet(key); err == nil {
			criteria.SeqNum = seqSet
		}
	}
	return nil
}

func mergeSearchCriteria(dst, src *imap.SearchCriteria) {
	dst.Flag = append(dst.Flag, src.Flag...)
	dst.NotFlag = append(dst.NotFlag, src.NotFlag...)
	dst.Body = append(dst.Body, src.Body...)
	dst.Text = append(dst.Text, src.Text...)
	dst.Header = append(dst.Header, src.Header...)
	if src.UID != nil {
		dst.UID = src.UID
	}
	if src.SeqNum != nil {
		dst.SeqNum = src.SeqNum
	}
	if src.Larger != 0 {
		dst.Larger = src.Larger
	}
	if src.Smaller != 0 {
		dst.Smaller = src.Smaller
	}
}
