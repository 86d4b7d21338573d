package events

// Event type constants for kelindar/event.
const (
	TypeSessionStarted uint32 = iota + 1
	TypeSessionStateChanged
	TypeSessionCrashed
	TypeSessionStopped
	TypeDeviceProbed
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionStartedEvent is published when a session's encoder subprocess has
// been spawned.
type SessionStartedEvent struct {
	SessionID string `json:"session_id" example:"3f2a7c1e" doc:"Session identifier"`
	SourceKey string `json:"source_key" example:"camera:/dev/video0" doc:"Resolved source identity"`
	Sink      string `json:"sink" doc:"Publish sink address"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStartedEvent.
func (e SessionStartedEvent) Type() uint32 { return TypeSessionStarted }

// SessionStateChangedEvent is published on every session state transition.
type SessionStateChangedEvent struct {
	SessionID string `json:"session_id" example:"3f2a7c1e" doc:"Session identifier"`
	OldState  string `json:"old_state" example:"starting" doc:"Previous state"`
	NewState  string `json:"new_state" example:"running" doc:"New state"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStateChangedEvent.
func (e SessionStateChangedEvent) Type() uint32 { return TypeSessionStateChanged }

// SessionCrashedEvent is published when an encoder subprocess exits on its
// own while a session was running.
type SessionCrashedEvent struct {
	SessionID string `json:"session_id" example:"3f2a7c1e" doc:"Session identifier"`
	ExitCode  int    `json:"exit_code" example:"1" doc:"Subprocess exit code"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionCrashedEvent.
func (e SessionCrashedEvent) Type() uint32 { return TypeSessionCrashed }

// SessionStoppedEvent is published when a session reaches Terminated after
// an explicit stop.
type SessionStoppedEvent struct {
	SessionID string `json:"session_id" example:"3f2a7c1e" doc:"Session identifier"`
	Forced    bool   `json:"forced" example:"false" doc:"Whether the stop escalated to a kill"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStoppedEvent.
func (e SessionStoppedEvent) Type() uint32 { return TypeSessionStopped }

// DeviceProbedEvent is published when a capability probe completes.
type DeviceProbedEvent struct {
	Kind        string `json:"kind" example:"camera" doc:"Device kind probed"`
	DeviceCount int    `json:"device_count" example:"2" doc:"Number of devices found"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceProbedEvent.
func (e DeviceProbedEvent) Type() uint32 { return TypeDeviceProbed }

// LogEntryEvent carries a log entry for streaming consumers.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
