package sessions

// State is the position of the session in the sign-in state machine.
type State int

const (
	LoggedOut State = iota
	Transitioning
	LoggedIn
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "LoggedOut"
	case Transitioning:
		return "Transitioning"
	case LoggedIn:
		return "LoggedIn"
	default:
		return "Unknown"
	}
}

// Display names shown when there is no signed-in user name to show.
const (
	NotLoggedInName = "NOT LOGGED IN"
	UnknownUserName = "UNKNOWN USER"
	LoggedOutName   = "LOGGED OUT"
)

// Session is a snapshot of the local authentication state.
type Session struct {
	State       State
	IsLoggedIn  bool   // True only in LoggedIn
	DisplayName string // Never empty while IsLoggedIn
}
