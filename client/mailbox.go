package client

import (
	"fmt"

	imap "github.com/meszmate/imap-flow"
	"github.com/meszmate/imap-flow/wire"
)

// Select issues SELECT (or EXAMINE, when opts.ReadOnly is set) for a
// mailbox. The caller drives Progress; once the result is Done with an
// OK status, Client.Mailbox reflects the newly selected mailbox.
func (c *Client) Select(mailbox string, opts *imap.SelectOptions) (*CommandResult, error) {
	name := "SELECT"
	if opts != nil && opts.ReadOnly {
		name = "EXAMINE"
	}
	c.mu.Lock()
	c.mailbox = &MailboxStatus{Name: mailbox, SelectData: imap.SelectData{ReadOnly: name == "EXAMINE"}}
	c.mu.Unlock()
	return c.enqueue(name, mailboxArg(mailbox))
}

// Examine opens a mailbox read-only.
func (c *Client) Examine(mailbox string) (*CommandResult, error) {
	return c.Select(mailbox, &imap.SelectOptions{ReadOnly: true})
}

// Create creates a new mailbox.
func (c *Client) Create(mailbox string) (*CommandResult, error) {
	return c.enqueue("CREATE", mailboxArg(mailbox))
}

// CreateWithOptions creates a mailbox, sending a USE parameter for a
// special-use attribute per RFC 6154.
func (c *Client) CreateWithOptions(mailbox string, options *imap.CreateOptions) (*CommandResult, error) {
	args := []wire.Arg{mailboxArg(mailbox)}
	if options != nil && options.SpecialUse != "" {
		args = append(args, wire.ArgList(wire.ArgAtom("USE"), wire.ArgList(wire.ArgAtom(string(options.SpecialUse)))))
	}
	return c.enqueue("CREATE", args...)
}

// Delete deletes a mailbox.
func (c *Client) Delete(mailbox string) (*CommandResult, error) {
	return c.enqueue("DELETE", mailboxArg(mailbox))
}

// Rename renames a mailbox.
func (c *Client) Rename(oldName, newName string) (*CommandResult, error) {
	return c.enqueue("RENAME", mailboxArg(oldName), mailboxArg(newName))
}

// Subscribe subscribes to a mailbox.
func (c *Client) Subscribe(mailbox string) (*CommandResult, error) {
	return c.enqueue("SUBSCRIBE", mailboxArg(mailbox))
}

// Unsubscribe unsubscribes from a mailbox.
func (c *Client) Unsubscribe(mailbox string) (*CommandResult, error) {
	return c.enqueue("UNSUBSCRIBE", mailboxArg(mailbox))
}

// ListMailboxes issues LIST with a reference and a single pattern.
// Each matching mailbox arrives as a LIST data response, accumulated
// into the result's ListData by the time it completes.
func (c *Client) ListMailboxes(ref, pattern string) (*CommandResult, error) {
	return c.enqueue("LIST", mailboxArg(ref), mailboxArg(pattern))
}

// ListMailboxesExtended issues LIST with RFC 5258 extended selection
// and return options, and any number of patterns.
func (c *Client) ListMailboxesExtended(ref string, patterns []string, options *imap.ListOptions) (*CommandResult, error) {
	var args []wire.Arg

	if options != nil && hasSelectionOpts(options) {
		var sel []wire.Arg
		if options.SelectSubscribed {
			sel = append(sel, wire.ArgAtom("SUBSCRIBED"))
		}
		if options.SelectRemote {
			sel = append(sel, wire.ArgAtom("REMOTE"))
		}
		if options.SelectRecursiveMatch {
			sel = append(sel, wire.ArgAtom("RECURSIVEMATCH"))
		}
		if options.SelectSpecialUse {
			sel = append(sel, wire.ArgAtom("SPECIAL-USE"))
		}
		args = append(args, wire.ArgList(sel...))
	}

	args = append(args, mailboxArg(ref))

	if len(patterns) == 1 {
		args = append(args, mailboxArg(patterns[0]))
	} else {
		pats := make([]wire.Arg, len(patterns))
		for i, p := range patterns {
			pats[i] = mailboxArg(p)
		}
		args = append(args, wire.ArgList(pats...))
	}

	if options != nil && hasReturnOpts(options) {
		var ret []wire.Arg
		if options.ReturnSubscribed {
			ret = append(ret, wire.ArgAtom("SUBSCRIBED"))
		}
		if options.ReturnChildren {
			ret = append(ret, wire.ArgAtom("CHILDREN"))
		}
		if options.ReturnSpecialUse {
			ret = append(ret, wire.ArgAtom("SPECIAL-USE"))
		}
		if options.ReturnMyRights {
			ret = append(ret, wire.ArgAtom("MYRIGHTS"))
		}
		if options.ReturnStatus != nil {
			items := buildStatusItems(options.ReturnStatus)
			statusArgs := make([]wire.Arg, len(items))
			for i, it := range items {
				statusArgs[i] = wire.ArgAtom(it)
			}
			ret = append(ret, wire.ArgAtom("STATUS"), wire.ArgList(statusArgs...))
		}
		if options.ReturnMetadata != nil {
			var meta []wire.Arg
			for _, opt := range options.ReturnMetadata.Options {
				meta = append(meta, wire.Arg{Text: opt, Quoted: true})
			}
			if options.ReturnMetadata.MaxSize > 0 {
				meta = append(meta, wire.ArgAtom(fmt.Sprintf("MAXSIZE %d", options.ReturnMetadata.MaxSize)))
			}
			if options.ReturnMetadata.Depth != "" {
				meta = append(meta, wire.ArgAtom("DEPTH "+options.ReturnMetadata.Depth))
			}
			ret = append(ret, wire.ArgAtom("METADATA"), wire.ArgList(meta...))
		}
		args = append(args, wire.ArgAtom("RETURN"), wire.ArgList(ret...))
	}

	return c.enqueue("LIST", args...)
}

func hasSelectionOpts(opts *imap.ListOptions) bool {
	return opts.SelectSubscribed || opts.SelectRemote || opts.SelectRecursiveMatch || opts.SelectSpecialUse
}

func hasReturnOpts(opts *imap.ListOptions) bool {
	return opts.ReturnSubscribed || opts.ReturnChildren || opts.ReturnSpecialUse ||
		opts.ReturnMyRights || opts.ReturnStatus != nil || opts.ReturnMetadata != nil
}

// Status issues STATUS for a mailbox.
func (c *Client) Status(mailbox string, opts *imap.StatusOptions) (*CommandResult, error) {
	items := buildStatusItems(opts)
	statusArgs := make([]wire.Arg, len(items))
	for i, it := range items {
		statusArgs[i] = wire.ArgAtom(it)
	}
	return c.enqueue("STATUS", mailboxArg(mailbox), wire.ArgList(statusArgs...))
}

func buildStatusItems(opts *imap.StatusOptions) []string {
	if opts == nil {
		return []string{"MESSAGES", "UIDNEXT", "UIDVALIDITY", "UNSEEN"}
	}
	var items []string
	if opts.NumMessages {
		items = append(items, "MESSAGES")
	}
	if opts.UIDNext {
		items = append(items, "UIDNEXT")
	}
	if opts.UIDValidity {
		items = append(items, "UIDVALIDITY")
	}
	if opts.NumUnseen {
		items = append(items, "UNSEEN")
	}
	if opts.NumRecent {
		items = append(items, "RECENT")
	}
	if opts.Size {
		items = append(items, "SIZE")
	}
	if opts.HighestModSeq {
		items = append(items, "HIGHESTMODSEQ")
	}
	if len(items) == 0 {
		items = []string{"MESSAGES", "UIDNEXT", "UIDVALIDITY", "UNSEEN"}
	}
	return items
}

// Unselect closes the current mailbox without expunging (RFC 3691).
func (c *Client) Unselect() (*CommandResult, error) {
	return c.enqueue("UNSELECT")
}

// CloseMailbox closes the current mailbox, expunging deleted messages.
func (c *Client) CloseMailbox() (*CommandResult, error) {
	return c.enqueue("CLOSE")
}

// Append appends a message to a mailbox. content is sent as a literal,
// synchronizing unless the peer's capabilities permit LITERAL+.
func (c *Client) Append(mailbox string, flags []imap.Flag, content []byte) (*CommandResult, error) {
	args := []wire.Arg{mailboxArg(mailbox)}
	if len(flags) > 0 {
		flagArgs := make([]wire.Arg, len(flags))
		for i, f := range flags {
			flagArgs[i] = wire.ArgAtom(string(f))
		}
		args = append(args, wire.ArgList(flagArgs...))
	}
	args = append(args, wire.ArgLiteral(content))
	return c.enqueue("APPEND", args...)
}

// Fetch issues FETCH for a sequence set with the given item names
// (e.g. "FLAGS", "ENVELOPE", "BODY[]", "BODY.PEEK[HEADER]").
func (c *Client) Fetch(seqSet string, items []string) (*CommandResult, error) {
	return c.enqueue("FETCH", seqSetArg(seqSet), fetchItemsArg(items))
}

// UIDFetch issues UID FETCH.
func (c *Client) UIDFetch(uidSet string, items []string) (*CommandResult, error) {
	return c.enqueue("UID FETCH", seqSetArg(uidSet), fetchItemsArg(items))
}

func fetchItemsArg(items []string) wire.Arg {
	if len(items) == 1 {
		return wire.ArgAtom(items[0])
	}
	args := make([]wire.Arg, len(items))
	for i, it := range items {
		args[i] = wire.ArgAtom(it)
	}
	return wire.ArgList(args...)
}

func seqSetArg(s string) wire.Arg { return wire.ArgAtom(s) }
func mailboxArg(s string) wire.Arg {
	return wire.Arg{Text: s, Quoted: needsQuoting(s)}
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == ' ' || b == '"' || b == '\\' || b == '(' || b == ')' || b == '{' || b < 0x20 || b == 0x7f {
			return true
		}
	}
	return false
}

// Store modifies message flags.
func (c *Client) Store(seqSet string, action imap.StoreAction, flags []imap.Flag, silent bool) (*CommandResult, error) {
	return c.enqueue("STORE", seqSetArg(seqSet), storeItemArg(action, silent), flagListArg(flags))
}

// UIDStore modifies message flags using UIDs.
func (c *Client) UIDStore(uidSet string, action imap.StoreAction, flags []imap.Flag, silent bool) (*CommandResult, error) {
	return c.enqueue("UID STORE", seqSetArg(uidSet), storeItemArg(action, silent), flagListArg(flags))
}

func storeItemArg(action imap.StoreAction, silent bool) wire.Arg {
	item := action.String()
	if silent {
		item += ".SILENT"
	}
	return wire.ArgAtom(item)
}

func flagListArg(flags []imap.Flag) wire.Arg {
	args := make([]wire.Arg, len(flags))
	for i, f := range flags {
		args[i] = wire.ArgAtom(string(f))
	}
	return wire.ArgList(args...)
}

// Copy copies messages to another mailbox.
func (c *Client) Copy(seqSet, dest string) (*CommandResult, error) {
	return c.enqueue("COPY", seqSetArg(seqSet), mailboxArg(dest))
}

// UIDCopy copies messages using UIDs.
func (c *Client) UIDCopy(uidSet, dest string) (*CommandResult, error) {
	return c.enqueue("UID COPY", seqSetArg(uidSet), mailboxArg(dest))
}

// Move moves messages to another mailbox (RFC 6851).
func (c *Client) Move(seqSet, dest string) (*CommandResult, error) {
	return c.enqueue("MOVE", seqSetArg(seqSet), mailboxArg(dest))
}

// UIDMove moves messages using UIDs.
func (c *Client) UIDMove(uidSet, dest string) (*CommandResult, error) {
	return c.enqueue("UID MOVE", seqSetArg(uidSet), mailboxArg(dest))
}

// Expunge permanently removes messages flagged \Deleted.
func (c *Client) Expunge() (*CommandResult, error) {
	return c.enqueue("EXPUNGE")
}

// UIDExpunge permanently removes the given UIDs (RFC 4315).
func (c *Client) UIDExpunge(uidSet string) (*CommandResult, error) {
	return c.enqueue("UID EXPUNGE", seqSetArg(uidSet))
}

// Search searches for messages matching criteria, given as raw IMAP
// search-key text (e.g. `UNSEEN SINCE 1-Jan-2024`).
func (c *Client) Search(criteria string) (*CommandResult, error) {
	return c.enqueueRaw("SEARCH", criteria)
}

// UIDSearch searches using UIDs.
func (c *Client) UIDSearch(criteria string) (*CommandResult, error) {
	return c.enqueueRaw("UID SEARCH", criteria)
}

// Sort sorts messages (RFC 5256).
func (c *Client) Sort(sortCriteria, charset, searchCriteria string) (*CommandResult, error) {
	return c.enqueueRaw("SORT", sortCriteria+" "+charset+" "+searchCriteria)
}

// Thread retrieves threading information (RFC 5256).
func (c *Client) Thread(algorithm, charset, searchCriteria string) (*CommandResult, error) {
	return c.enqueueRaw("THREAD", algorithm+" "+charset+" "+searchCriteria)
}

// enqueueRaw enqueues a command whose argument text is caller-supplied
// raw IMAP syntax (search keys, sort/thread criteria) that would be
// needlessly restrictive to model as a single Arg tree.
func (c *Client) enqueueRaw(name, rawArgs string) (*CommandResult, error) {
	return c.enqueue(name, wire.ArgAtom(rawArgs))
}

// ID sends the ID command (RFC 2971).
func (c *Client) ID(clientID map[string]string) (*CommandResult, error) {
	if clientID == nil {
		return c.enqueue("ID", wire.ArgNil())
	}
	keys := make([]string, 0, len(clientID))
	for k := range clientID {
		keys = append(keys, k)
	}
	args := make([]wire.Arg, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, wire.Arg{Text: k, Quoted: true}, wire.Arg{Text: clientID[k], Quoted: true})
	}
	return c.enqueue("ID", wire.ArgList(args...))
}
