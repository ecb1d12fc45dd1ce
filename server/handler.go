package server

import (
	imap "github.com/meszmate/imap-flow"
)

// NumKind indicates whether a command uses sequence numbers or UIDs.
type NumKind = imap.NumKind

const (
	NumKindSeq = imap.NumKindSeq
	NumKindUID = imap.NumKindUID
)
