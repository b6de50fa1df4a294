package domain

// Phase is the mode of the submission state machine.
type Phase string

const (
	PhaseIdle    Phase = "idle"    // Ready to accept a submission
	PhaseSending Phase = "sending" // One exchange is outstanding
)

// State is the session state owned by the submission controller.
type State struct {
	// SessionID identifies the session to publishers and streams.
	SessionID string

	// Transcript holds the conversation so far, oldest first.
	Transcript Transcript

	// PendingInput is the text the user is currently composing.
	PendingInput string

	// Phase is Idle or Sending. Only one exchange may be outstanding.
	Phase Phase

	// LastError is the user-facing failure message of the previous exchange.
	// Empty unless the most recent exchange failed.
	LastError string

	// Version increases with every applied transition.
	Version uint64
}

// NewState creates the initial state of a session.
func NewState(sessionID string) State {
	return State{
		SessionID: sessionID,
		Phase:     PhaseIdle,
	}
}

// InFlight reports whether an exchange is outstanding.
func (s State) InFlight() bool {
	return s.Phase == PhaseSending
}

// Snapshot is the read-only view of a State delivered to renderers.
type Snapshot struct {
	SessionID    string     `json:"session_id"`
	Transcript   Transcript `json:"transcript"`
	PendingInput string     `json:"pending_input"`
	Phase        Phase      `json:"phase"`
	InFlight     bool       `json:"in_flight"`
	LastError    string     `json:"last_error,omitempty"`
	Version      uint64     `json:"version"`
}

// Snapshot returns the renderer view of the state.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		SessionID:    s.SessionID,
		Transcript:   s.Transcript,
		PendingInput: s.PendingInput,
		Phase:        s.Phase,
		InFlight:     s.InFlight(),
		LastError:    s.LastError,
		Version:      s.Version,
	}
}
