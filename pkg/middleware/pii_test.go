package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/middleware"
	"github.com/aretw0/rapport/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	snaps []domain.Snapshot
}

func (c *capture) Publish(_ context.Context, snap domain.Snapshot) error {
	c.snaps = append(c.snaps, snap)
	return nil
}

func TestPIIMiddleware_Masking(t *testing.T) {
	sink := &capture{}
	mw, err := middleware.NewPIIMiddleware([]string{`[\w.]+@[\w.]+`, `09\d{8}`})
	require.NoError(t, err)
	pub := mw(sink)

	state := domain.NewState("pii-session")
	state.Transcript = domain.NewTranscript(
		domain.UserTurn("可以寄到 hr@example.com 嗎？"),
		domain.AssistantTurn("我的電話是 0912345678。"),
	)
	state.PendingInput = "jdoe@example.org"
	snap := state.Snapshot()

	require.NoError(t, pub.Publish(context.Background(), snap))

	// The snapshot handed in is left untouched.
	assert.Equal(t, "可以寄到 hr@example.com 嗎？", snap.Transcript.At(0).Content)

	require.Len(t, sink.snaps, 1)
	got := sink.snaps[0]
	assert.Equal(t, "可以寄到 *** 嗎？", got.Transcript.At(0).Content)
	assert.Equal(t, "我的電話是 ***。", got.Transcript.At(1).Content)
	assert.Equal(t, middleware.Mask, got.PendingInput)
	assert.Equal(t, domain.RoleAssistant, got.Transcript.At(1).Role)
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_Order(t *testing.T) {
	sink := &capture{}
	tag := func(s string) middleware.Middleware {
		return func(next ports.StatePublisher) ports.StatePublisher {
			return publisherFunc(func(ctx context.Context, snap domain.Snapshot) error {
				snap.LastError += s
				return next.Publish(ctx, snap)
			})
		}
	}

	pub := middleware.Chain(sink, tag("a"), tag("b"))
	require.NoError(t, pub.Publish(context.Background(), domain.Snapshot{}))
	assert.Equal(t, "ab", sink.snaps[0].LastError)
}

type publisherFunc func(context.Context, domain.Snapshot) error

func (f publisherFunc) Publish(ctx context.Context, snap domain.Snapshot) error {
	return f(ctx, snap)
}
