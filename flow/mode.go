package flow

// Side distinguishes which half of a session a Kernel drives. Both
// Client and Server specialize the same Kernel rather than
// duplicating its state machine.
type Side int

const (
	// ClientSide drives the client half: it sends commands and
	// receives responses.
	ClientSide Side = iota
	// ServerSide drives the server half: it receives commands and
	// sends responses.
	ServerSide
)

// Mode is the Kernel's outer substate, layered over the always-active
// literal gate (spec.md §4.3).
type Mode int

const (
	// ModeNormal is ordinary command/response traffic.
	ModeNormal Mode = iota
	// ModeAuthenticating is active for the duration of an AUTHENTICATE
	// exchange.
	ModeAuthenticating
	// ModeIdling is active for the duration of an IDLE command.
	ModeIdling
)

// authState is the AUTHENTICATE sub-machine's internal state
// (spec.md §4.3.2): Idle -> AuthSent -> AuthChallenging <-> AuthContinuing -> AuthDone.
type authState int

const (
	authIdle authState = iota
	authSent
	authChallenging
	authContinuing
	authDone
)

// idleState is the IDLE sub-machine's internal state (spec.md §4.3.3).
type idleState int

const (
	idleInactive idleState = iota
	idleSent        // client: IDLE written, awaiting server continuation
	idleAccepted    // continuation received/sent; streaming unsolicited data
	idleDoneSent    // DONE written, awaiting tagged completion
)
