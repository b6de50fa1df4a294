package ports

import (
	"context"

	"github.com/aretw0/rapport/pkg/domain"
)

// AnswerClient performs a single exchange with the remote answer endpoint.
type AnswerClient interface {
	// Send transmits the user utterance (and nothing else) and returns the answer.
	// Failures are returned as *domain.ExchangeError classified as HTTP, transport or decode.
	// Implementations must not retry and must not mutate session state.
	Send(ctx context.Context, message string) (domain.Answer, error)
}

// AnswerClientFunc adapts a function to the AnswerClient interface.
type AnswerClientFunc func(ctx context.Context, message string) (domain.Answer, error)

// Send calls f(ctx, message).
func (f AnswerClientFunc) Send(ctx context.Context, message string) (domain.Answer, error) {
	return f(ctx, message)
}
