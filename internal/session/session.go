// Package session owns the wallet session lifecycle: connecting,
// disconnecting, and reacting to provider-driven account and chain
// changes. Exactly one Manager exists per process; it is passed to every
// component that needs session state rather than exposed as a global.
package session

// State is the connection state of the wallet session.
type State int

// Connection states.
const (
	Disconnected State = iota
	Connecting
	Connected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Session is an immutable snapshot of the wallet session. The chain id
// survives disconnects because the provider itself never leaves a chain.
type Session struct {
	Account         string // active account address, empty when none
	ChainID         uint64 // active chain id, 0 before first read
	State           State
	NetworkMismatch bool // active chain has no registry profile
	Switching       bool // chain-switch request in flight
}

// HasAccount reports whether the session has an active account, which is
// the precondition for any write capability.
func (s Session) HasAccount() bool {
	return s.Account != ""
}
