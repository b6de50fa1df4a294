package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/rapport/pkg/domain"
)

// Dispatch describes the exchange the caller must start after an accepted submission.
type Dispatch struct {
	// Message is the trimmed user utterance; it is the only thing transmitted.
	Message string
}

// Step applies ev to state and returns the next state.
//
// A non-nil error means the event was rejected and the returned state equals
// the input state. A non-nil Dispatch is returned only for an accepted submission.
func Step(state domain.State, ev domain.Event) (domain.State, *Dispatch, error) {
	switch e := ev.(type) {
	case domain.InputChanged:
		return setInput(state, e.Text), nil, nil
	case domain.Submitted:
		return submit(state)
	case domain.AnswerReceived:
		return answer(state, e.Answer)
	case domain.ExchangeFailed:
		return fail(state)
	default:
		return state, nil, fmt.Errorf("unknown event %T", ev)
	}
}

// CanSubmit reports whether a Submitted event would be accepted.
func CanSubmit(state domain.State) error {
	if state.Phase == domain.PhaseSending {
		return domain.ErrSessionBusy
	}
	if strings.TrimSpace(state.PendingInput) == "" {
		return domain.ErrBlankInput
	}
	return nil
}

func setInput(state domain.State, text string) domain.State {
	if state.PendingInput == text {
		return state
	}
	state.PendingInput = text
	state.Version++
	return state
}

func submit(state domain.State) (domain.State, *Dispatch, error) {
	if err := CanSubmit(state); err != nil {
		return state, nil, err
	}

	message := strings.TrimSpace(state.PendingInput)

	// Order matters: the user turn exists before the exchange is dispatched.
	state.Transcript = state.Transcript.Append(domain.UserTurn(message))
	state.PendingInput = ""
	state.LastError = ""
	state.Phase = domain.PhaseSending
	state.Version++

	return state, &Dispatch{Message: message}, nil
}

func answer(state domain.State, a domain.Answer) (domain.State, *Dispatch, error) {
	if state.Phase != domain.PhaseSending {
		return state, nil, domain.ErrNoExchange
	}

	text := a.Text
	if text == "" && a.Fallback {
		text = domain.FallbackAnswer
	}

	state.Transcript = state.Transcript.Append(domain.AssistantTurn(text))
	state.Phase = domain.PhaseIdle
	state.Version++
	return state, nil, nil
}

func fail(state domain.State) (domain.State, *Dispatch, error) {
	if state.Phase != domain.PhaseSending {
		return state, nil, domain.ErrNoExchange
	}

	state.LastError = domain.FailureMessage
	state.Phase = domain.PhaseIdle
	state.Version++
	return state, nil, nil
}
