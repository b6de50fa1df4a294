package session

import (
	"context"
	"log/slog"

	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/ports"
)

// Forward publishes every snapshot received on sub until sub is closed or ctx ends.
// Publish errors are logged and do not stop forwarding.
func Forward(ctx context.Context, sub <-chan domain.Snapshot, pub ports.StatePublisher, logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub:
			if !ok {
				return
			}
			if err := pub.Publish(ctx, snap); err != nil {
				logger.Warn("Failed to publish snapshot",
					"session_id", snap.SessionID,
					"version", snap.Version,
					"err", err,
				)
			}
		}
	}
}
