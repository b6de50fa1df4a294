package domain

import "encoding/json"

// Transcript is the ordered, append-only log of turns.
// The zero value is an empty transcript ready to use.
//
// A Transcript is never mutated in place: Append returns a new Transcript and
// leaves the receiver untouched, so a Transcript held by a reader is a stable snapshot.
type Transcript struct {
	turns []Turn
}

// NewTranscript builds a transcript from the given turns, oldest first.
func NewTranscript(turns ...Turn) Transcript {
	if len(turns) == 0 {
		return Transcript{}
	}
	cp := make([]Turn, len(turns))
	copy(cp, turns)
	return Transcript{turns: cp}
}

// Append returns a new Transcript with turn at the end.
func (t Transcript) Append(turn Turn) Transcript {
	next := make([]Turn, len(t.turns), len(t.turns)+1)
	copy(next, t.turns)
	return Transcript{turns: append(next, turn)}
}

// Turns returns a copy of the turns, oldest first.
func (t Transcript) Turns() []Turn {
	cp := make([]Turn, len(t.turns))
	copy(cp, t.turns)
	return cp
}

// Len returns the number of turns.
func (t Transcript) Len() int {
	return len(t.turns)
}

// At returns the turn at index i.
func (t Transcript) At(i int) Turn {
	return t.turns[i]
}

// Last returns the most recent turn, if any.
func (t Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// Since returns a copy of the turns appended after the first n.
func (t Transcript) Since(n int) []Turn {
	if n < 0 {
		n = 0
	}
	if n >= len(t.turns) {
		return nil
	}
	cp := make([]Turn, len(t.turns)-n)
	copy(cp, t.turns[n:])
	return cp
}

// MarshalJSON encodes the transcript as a JSON array of turns.
func (t Transcript) MarshalJSON() ([]byte, error) {
	if t.turns == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.turns)
}

// UnmarshalJSON decodes a JSON array of turns.
func (t *Transcript) UnmarshalJSON(data []byte) error {
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return err
	}
	*t = NewTranscript(turns...)
	return nil
}
