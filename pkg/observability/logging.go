package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/rapport/pkg/domain"
)

// LoggingHooks logs every exchange transition at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSubmit: func(ctx context.Context, e *domain.ExchangeEvent) {
			logger.DebugContext(ctx, "exchange_submit",
				"session_id", e.SessionID,
				"message_size", len(e.Message),
			)
		},
		OnAnswer: func(ctx context.Context, e *domain.ExchangeEvent) {
			logger.DebugContext(ctx, "exchange_answer",
				"session_id", e.SessionID,
				"fallback", e.Answer != nil && e.Answer.Fallback,
				"duration", e.Duration,
			)
		},
		OnFailure: func(ctx context.Context, e *domain.ExchangeEvent) {
			logger.DebugContext(ctx, "exchange_failure",
				"session_id", e.SessionID,
				"kind", e.Kind,
				"err", e.Err,
				"duration", e.Duration,
			)
		},
	}
}
