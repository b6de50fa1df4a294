package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	idle := PhaseIdle
	sending := PhaseSending
	yes := true
	no := false
	empty := ""
	failure := FailureMessage
	typed := "你好"

	base := Snapshot{
		SessionID:  "sess-1",
		Transcript: NewTranscript(UserTurn("請介紹一個你最有成就感的專案？")),
		Phase:      PhaseSending,
		InFlight:   true,
		Version:    2,
	}

	tests := []struct {
		name     string
		old      *Snapshot
		new      *Snapshot
		wantDiff *StateDiff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new:  &base,
			wantDiff: &StateDiff{
				SessionID:    "sess-1",
				Version:      2,
				Phase:        &sending,
				InFlight:     &yes,
				PendingInput: &empty,
				Turns:        &TurnDelta{Appended: []Turn{UserTurn("請介紹一個你最有成就感的專案？")}},
			},
		},
		{
			name:     "No Changes",
			old:      &base,
			new:      &base,
			wantDiff: nil,
		},
		{
			name: "Answer Appended",
			old:  &base,
			new: &Snapshot{
				SessionID:  "sess-1",
				Transcript: base.Transcript.Append(AssistantTurn("我曾經...")),
				Phase:      PhaseIdle,
				Version:    3,
			},
			wantDiff: &StateDiff{
				SessionID: "sess-1",
				Version:   3,
				Phase:     &idle,
				InFlight:  &no,
				Turns:     &TurnDelta{Appended: []Turn{AssistantTurn("我曾經...")}},
			},
		},
		{
			name: "Failure Sets Error",
			old:  &base,
			new: &Snapshot{
				SessionID:  "sess-1",
				Transcript: base.Transcript,
				Phase:      PhaseIdle,
				LastError:  FailureMessage,
				Version:    3,
			},
			wantDiff: &StateDiff{
				SessionID: "sess-1",
				Version:   3,
				Phase:     &idle,
				InFlight:  &no,
				LastError: &failure,
			},
		},
		{
			name: "Typing While Sending",
			old:  &base,
			new: &Snapshot{
				SessionID:    "sess-1",
				Transcript:   base.Transcript,
				PendingInput: "你好",
				Phase:        PhaseSending,
				InFlight:     true,
				Version:      3,
			},
			wantDiff: &StateDiff{
				SessionID:    "sess-1",
				Version:      3,
				PendingInput: &typed,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if !reflect.DeepEqual(got, tt.wantDiff) {
				gotJSON, _ := json.Marshal(got)
				wantJSON, _ := json.Marshal(tt.wantDiff)
				t.Errorf("Diff() = %s, want %s", gotJSON, wantJSON)
			}
		})
	}
}

func TestDiff_ClearedErrorIsExplicit(t *testing.T) {
	old := &Snapshot{SessionID: "s", Phase: PhaseIdle, LastError: FailureMessage}
	new := &Snapshot{SessionID: "s", Phase: PhaseSending, InFlight: true, Transcript: NewTranscript(UserTurn("再試一次"))}

	d := Diff(old, new)
	if d == nil {
		t.Fatal("expected diff")
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"last_error":""`) {
		t.Errorf("expected cleared last_error in %s", data)
	}
}
