package session

// State is a session lifecycle state. Transitions for one session are
// totally ordered:
//
//	Idle -> Starting -> Running -> (Stopping | Crashed) -> Terminated
type State int

const (
	// Idle is the zero state before start is attempted.
	Idle State = iota
	// Starting means the subprocess is spawned but still inside the grace
	// window; an immediate exit from here is a crash, not a running stream.
	Starting
	// Running means the subprocess survived the grace window.
	Running
	// Stopping means an explicit stop was requested and the subprocess is
	// being signalled.
	Stopping
	// Crashed means the subprocess exited on its own while the session was
	// supposed to be live. Terminal for the session; no automatic restart.
	Crashed
	// Terminated means the subprocess is gone after an explicit stop.
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Crashed:
		return "crashed"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the session.
func (s State) Terminal() bool {
	return s == Crashed || s == Terminated
}
