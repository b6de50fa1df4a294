package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/rapport/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key and channel written by the Publisher.
const DefaultPrefix = "rapport:session:"

// ErrSnapshotNotFound is returned by Latest when no snapshot was published for a session.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Publisher implements ports.StatePublisher using Redis.
//
// Every snapshot is stored under <prefix><session_id> (overwriting the previous
// one) and published on <prefix><session_id>:events, so late observers can read
// the latest state and live observers can follow transitions.
type Publisher struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Publisher)

// WithTTL sets the expiration of the latest-snapshot key.
func WithTTL(ttl time.Duration) Option {
	return func(p *Publisher) {
		p.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(p *Publisher) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// New creates a publisher connected to the Redis server at address.
func New(address, password string, db int, opts ...Option) *Publisher {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a publisher from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Publisher {
	p := &Publisher{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) key(sessionID string) string {
	return p.prefix + sessionID
}

// Channel returns the pub/sub channel carrying the snapshots of a session.
func (p *Publisher) Channel(sessionID string) string {
	return p.prefix + sessionID + ":events"
}

// Publish stores snap as the latest snapshot of its session and announces it.
func (p *Publisher) Publish(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	pipe := p.client.Pipeline()
	pipe.Set(ctx, p.key(snap.SessionID), data, p.ttl)
	pipe.Publish(ctx, p.Channel(snap.SessionID), data)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

// Latest returns the most recently published snapshot of a session.
func (p *Publisher) Latest(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	val, err := p.client.Get(ctx, p.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.Snapshot{}, ErrSnapshotNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// Forget removes the latest snapshot of a session.
func (p *Publisher) Forget(ctx context.Context, sessionID string) error {
	return p.client.Del(ctx, p.key(sessionID)).Err()
}

// Subscribe follows the snapshots published for a session until ctx ends.
// Messages that do not decode as snapshots are skipped.
func (p *Publisher) Subscribe(ctx context.Context, sessionID string) (<-chan domain.Snapshot, error) {
	pubsub := p.client.Subscribe(ctx, p.Channel(sessionID))
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan domain.Snapshot)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var snap domain.Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					continue
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close closes the redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
