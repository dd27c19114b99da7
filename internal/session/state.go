package session

// State is a LoginSession's position in the authorization-code flow.
type State int

const (
	StateIdle State = iota
	StateAuthURLIssued
	StateExchanging
	StateAuthenticated
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthURLIssued:
		return "auth_url_issued"
	case StateExchanging:
		return "exchanging"
	case StateAuthenticated:
		return "authenticated"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}
