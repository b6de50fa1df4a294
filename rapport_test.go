package rapport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/rapport"
	"github.com/aretw0/rapport/internal/config"
	"github.com/aretw0/rapport/internal/stub"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, opts ...stub.Option) *httptest.Server {
	t.Helper()
	s, err := stub.New(opts...)
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestChat_EndToEnd(t *testing.T) {
	srv := newBackend(t)
	chat, err := rapport.New(rapport.WithBaseURL(srv.URL + "/"))
	require.NoError(t, err)
	defer chat.Close()

	assert.Equal(t, srv.URL+"/", chat.Config().APIBaseURL)

	snap, err := chat.Ask(context.Background(), "  你好  ")
	require.NoError(t, err)
	require.Equal(t, 2, snap.Transcript.Len())
	assert.Equal(t, domain.UserTurn("你好"), snap.Transcript.At(0))
	assert.Contains(t, snap.Transcript.At(1).Content, "你好")
	assert.Equal(t, 1.0, testutil.ToFloat64(chat.Metrics().Submissions))
	assert.Equal(t, 1.0, testutil.ToFloat64(chat.Metrics().Answers.WithLabelValues("false")))
}

func TestChat_HTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	var mu sync.Mutex
	var kinds []domain.FailureKind
	chat, err := rapport.New(
		rapport.WithBaseURL(srv.URL),
		rapport.WithLifecycleHooks(domain.LifecycleHooks{
			OnFailure: func(_ context.Context, e *domain.ExchangeEvent) {
				mu.Lock()
				defer mu.Unlock()
				kinds = append(kinds, e.Kind)
			},
		}),
	)
	require.NoError(t, err)
	defer chat.Close()

	snap, err := chat.Ask(context.Background(), "你好")
	require.NoError(t, err)
	assert.Equal(t, []domain.Turn{domain.UserTurn("你好")}, snap.Transcript.Turns())
	assert.Equal(t, domain.FailureMessage, snap.LastError)
	assert.False(t, snap.InFlight)

	mu.Lock()
	assert.Equal(t, []domain.FailureKind{domain.FailureHTTP}, kinds)
	mu.Unlock()
	assert.Equal(t, 1.0, testutil.ToFloat64(chat.Metrics().Failures.WithLabelValues("http")))
}

func TestChat_SingleFlightAgainstSlowBackend(t *testing.T) {
	var mu sync.Mutex
	requests := 0
	srv := newBackend(t,
		stub.WithDelay(50*time.Millisecond),
		stub.WithResponder(func(_ context.Context, message string) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			requests++
			return "ok", nil
		}),
	)

	chat, err := rapport.New(rapport.WithBaseURL(srv.URL))
	require.NoError(t, err)
	defer chat.Close()

	chat.SetInput("第一題")
	x, err := chat.Submit(context.Background())
	require.NoError(t, err)

	chat.SetInput("第二題")
	_, err = chat.Submit(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionBusy)

	_, err = x.Wait(context.Background())
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, 1, requests)
	mu.Unlock()
	assert.Equal(t, "第二題", chat.Snapshot().PendingInput)
}

func TestChat_InvalidBaseURL(t *testing.T) {
	_, err := rapport.New(rapport.WithBaseURL("localhost:8000"))
	assert.Error(t, err)
}

func TestChat_PublishesToRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	srv := newBackend(t)
	cfg := config.Default()
	cfg.APIBaseURL = srv.URL
	cfg.Redis.Addr = mr.Addr()

	chat, err := rapport.New(rapport.WithConfig(cfg), rapport.WithSessionID("redis-e2e"))
	require.NoError(t, err)

	_, err = chat.Ask(context.Background(), "你好")
	require.NoError(t, err)

	key := "rapport:session:redis-e2e"
	require.Eventually(t, func() bool {
		val, err := mr.Get(key)
		return err == nil && strings.Contains(val, `"role":"assistant"`)
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, chat.Close())
	assert.False(t, mr.Exists(key), "the latest snapshot is removed on close")
}

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []domain.Snapshot
}

func (p *recordingPublisher) Publish(_ context.Context, snap domain.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
	return nil
}

func (p *recordingPublisher) last() (domain.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snaps) == 0 {
		return domain.Snapshot{}, false
	}
	return p.snaps[len(p.snaps)-1], true
}

func TestChat_RedactsPublishedSnapshots(t *testing.T) {
	srv := newBackend(t)
	pub := &recordingPublisher{}

	chat, err := rapport.New(
		rapport.WithBaseURL(srv.URL),
		rapport.WithPublisher(pub),
		rapport.WithRedaction(`\d{4}-\d{3}-\d{3}`),
	)
	require.NoError(t, err)

	snap, err := chat.Ask(context.Background(), "請撥 0912-345-678")
	require.NoError(t, err)
	assert.Equal(t, "請撥 0912-345-678", snap.Transcript.At(0).Content)

	require.NoError(t, chat.Close())

	published, ok := pub.last()
	require.True(t, ok)
	require.Equal(t, 2, published.Transcript.Len())
	assert.Equal(t, "請撥 ***", published.Transcript.At(0).Content)
	assert.NotContains(t, published.Transcript.At(1).Content, "0912-345-678")
}

func TestChat_InvalidRedactionPattern(t *testing.T) {
	_, err := rapport.New(rapport.WithPublisher(&recordingPublisher{}), rapport.WithRedaction("("))
	assert.Error(t, err)
}

func TestChat_MetricsHandler(t *testing.T) {
	srv := newBackend(t)
	chat, err := rapport.New(rapport.WithBaseURL(srv.URL))
	require.NoError(t, err)
	defer chat.Close()

	_, err = chat.Ask(context.Background(), "你好")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	chat.MetricsHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "rapport_submissions_total 1")
}
