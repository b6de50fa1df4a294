package ports

import (
	"context"

	"github.com/aretw0/rapport/pkg/domain"
)

// StatePublisher forwards session snapshots to an external sink.
type StatePublisher interface {
	// Publish delivers one snapshot. Snapshots carry a Version so sinks can discard stale ones.
	Publish(ctx context.Context, snap domain.Snapshot) error
}
