package tcp

// State is the lifecycle stage of a connection handler.
type State int32

const (
	StateAccepted State = iota
	StateHandshaking
	StateServing
	StateClosing
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateAccepted:
		return "ACCEPTED"
	case StateHandshaking:
		return "HANDSHAKING"
	case StateServing:
		return "SERVING"
	case StateClosing:
		return "CLOSING"
	case StateReleased:
		return "RELEASED"
	default:
		return "UNKNOWN"
	}
}
