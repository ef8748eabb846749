package session

// State is a session's position in its connection lifecycle (spec §3
// Session, §4.3 Dispatcher preconditions).
type State int

const (
	Connected State = iota
	Authenticated
	InGame
)

func (s State) String() string {
	switch s {
	case Connected:
		return "CONNECTED"
	case Authenticated:
		return "AUTHENTICATED"
	case InGame:
		return "IN_GAME"
	default:
		return "UNKNOWN"
	}
}
