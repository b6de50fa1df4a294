package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/rapport/pkg/adapters/redis"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.StatePublisher = (*redis.Publisher)(nil)

func setup(t *testing.T, opts ...redis.Option) (*miniredis.Miniredis, *redis.Publisher) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	p := redis.NewFromClient(client, opts...)
	t.Cleanup(func() { _ = p.Close() })
	return mr, p
}

func sampleSnapshot(version uint64) domain.Snapshot {
	state := domain.NewState("session-1")
	state.Transcript = domain.NewTranscript(domain.UserTurn("你好"), domain.AssistantTurn("您好"))
	state.Version = version
	return state.Snapshot()
}

func TestPublisher_LatestRoundTrip(t *testing.T) {
	mr, p := setup(t)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, sampleSnapshot(1)))
	require.NoError(t, p.Publish(ctx, sampleSnapshot(2)))

	assert.True(t, mr.Exists("rapport:session:session-1"))

	got, err := p.Latest(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Version)
	assert.Equal(t, domain.PhaseIdle, got.Phase)
	assert.Equal(t, []domain.Turn{
		domain.UserTurn("你好"),
		domain.AssistantTurn("您好"),
	}, got.Transcript.Turns())
}

func TestPublisher_NotFoundAndForget(t *testing.T) {
	_, p := setup(t)
	ctx := context.Background()

	_, err := p.Latest(ctx, "missing")
	assert.ErrorIs(t, err, redis.ErrSnapshotNotFound)

	require.NoError(t, p.Publish(ctx, sampleSnapshot(1)))
	require.NoError(t, p.Forget(ctx, "session-1"))

	_, err = p.Latest(ctx, "session-1")
	assert.ErrorIs(t, err, redis.ErrSnapshotNotFound)
}

func TestPublisher_PrefixAndTTL(t *testing.T) {
	mr, p := setup(t, redis.WithPrefix("test:"), redis.WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, sampleSnapshot(1)))
	assert.True(t, mr.Exists("test:session-1"))
	assert.Equal(t, time.Minute, mr.TTL("test:session-1"))
	assert.Equal(t, "test:session-1:events", p.Channel("session-1"))

	mr.FastForward(2 * time.Minute)
	_, err := p.Latest(ctx, "session-1")
	assert.ErrorIs(t, err, redis.ErrSnapshotNotFound)
}

func TestPublisher_Subscribe(t *testing.T) {
	_, p := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := p.Subscribe(ctx, "session-1")
	require.NoError(t, err)

	require.NoError(t, p.Publish(ctx, sampleSnapshot(3)))

	select {
	case snap := <-events:
		assert.Equal(t, uint64(3), snap.Version)
		assert.Equal(t, "session-1", snap.SessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot was not delivered")
	}

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription was not closed")
	}
}
