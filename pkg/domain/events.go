package domain

import (
	"context"
	"time"
)

// Answer is the successful outcome of an exchange.
type Answer struct {
	Text string `json:"text"`

	// Fallback is true when the endpoint omitted the answer and FallbackAnswer was used.
	Fallback bool `json:"fallback,omitempty"`
}

// Event is an input to the submission state machine.
type Event interface {
	event()
}

// InputChanged replaces the pending input. It is accepted in any phase.
type InputChanged struct {
	Text string
}

// Submitted asks to send the pending input.
type Submitted struct{}

// AnswerReceived resolves the outstanding exchange successfully.
type AnswerReceived struct {
	Answer Answer
}

// ExchangeFailed resolves the outstanding exchange with a failure.
type ExchangeFailed struct {
	Err error
}

func (InputChanged) event()   {}
func (Submitted) event()      {}
func (AnswerReceived) event() {}
func (ExchangeFailed) event() {}

// ExchangeEvent describes one exchange for observability hooks.
type ExchangeEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	SessionID string        `json:"session_id"`
	Message   string        `json:"message"`
	Answer    *Answer       `json:"answer,omitempty"`
	Err       error         `json:"-"`
	Kind      FailureKind   `json:"kind,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// LifecycleHooks defines callbacks for session observability.
// Hooks run synchronously on the exchange goroutine; they must not block.
type LifecycleHooks struct {
	OnSubmit  func(context.Context, *ExchangeEvent)
	OnAnswer  func(context.Context, *ExchangeEvent)
	OnFailure func(context.Context, *ExchangeEvent)
}

// ComposeHooks returns hooks that call each of the given hooks in order.
func ComposeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range hooks {
		out.OnSubmit = chain(out.OnSubmit, h.OnSubmit)
		out.OnAnswer = chain(out.OnAnswer, h.OnAnswer)
		out.OnFailure = chain(out.OnFailure, h.OnFailure)
	}
	return out
}

func chain(a, b func(context.Context, *ExchangeEvent)) func(context.Context, *ExchangeEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *ExchangeEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
