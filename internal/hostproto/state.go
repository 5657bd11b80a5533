package hostproto

// State is the handshake state.
type State int

const (
	StateInit State = iota
	StateAwaitingInit
	StateConnected
	StateStandalone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAwaitingInit:
		return "awaiting_init"
	case StateConnected:
		return "connected"
	case StateStandalone:
		return "standalone"
	}
	return "unknown"
}

// Human-readable status lines shown by the view.
const (
	StatusInitializing = "Initializing..."
	StatusConnected    = "Connected to host"
	StatusNoData       = "No activity data available"
	StatusStandalone   = "Not connected to host (standalone)"
)
