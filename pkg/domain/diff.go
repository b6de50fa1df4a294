package domain

// StateDiff represents the changes between two snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	// Version of the newer snapshot.
	Version uint64 `json:"version"`

	Phase        *Phase  `json:"phase,omitempty"`
	InFlight     *bool   `json:"in_flight,omitempty"`
	PendingInput *string `json:"pending_input,omitempty"`

	// LastError is present when it changed; an empty string means it was cleared.
	LastError *string `json:"last_error,omitempty"`

	// Turns contains the turns appended since the older snapshot.
	Turns *TurnDelta `json:"turns,omitempty"`
}

// TurnDelta holds turns appended to the transcript.
type TurnDelta struct {
	Appended []Turn `json:"appended"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, it returns a diff representing the entire newSnap (initial load).
// It returns nil when nothing changed.
func Diff(oldSnap, newSnap *Snapshot) *StateDiff {
	if newSnap == nil {
		return nil
	}

	diff := &StateDiff{
		SessionID: newSnap.SessionID,
		Version:   newSnap.Version,
	}

	if oldSnap == nil || oldSnap.Phase != newSnap.Phase {
		diff.Phase = &newSnap.Phase
	}
	if oldSnap == nil || oldSnap.InFlight != newSnap.InFlight {
		diff.InFlight = &newSnap.InFlight
	}
	if oldSnap == nil || oldSnap.PendingInput != newSnap.PendingInput {
		diff.PendingInput = &newSnap.PendingInput
	}
	if oldSnap == nil {
		if newSnap.LastError != "" {
			diff.LastError = &newSnap.LastError
		}
	} else if oldSnap.LastError != newSnap.LastError {
		diff.LastError = &newSnap.LastError
	}

	diff.Turns = diffTurns(oldSnap, newSnap)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// diffTurns relies on the transcript being append-only.
func diffTurns(old, new *Snapshot) *TurnDelta {
	seen := 0
	if old != nil {
		seen = old.Transcript.Len()
	}
	appended := new.Transcript.Since(seen)
	if len(appended) == 0 {
		return nil
	}
	return &TurnDelta{Appended: appended}
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.Phase == nil &&
		d.InFlight == nil &&
		d.PendingInput == nil &&
		d.LastError == nil &&
		d.Turns == nil
}
