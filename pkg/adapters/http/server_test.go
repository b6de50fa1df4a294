package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	rapporthttp "github.com/aretw0/rapport/pkg/adapters/http"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/ports"
	"github.com/aretw0/rapport/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoClient() ports.AnswerClient {
	return ports.AnswerClientFunc(func(_ context.Context, message string) (domain.Answer, error) {
		return domain.Answer{Text: "echo: " + message}, nil
	})
}

func newSession(t *testing.T, client ports.AnswerClient) *session.Controller {
	t.Helper()
	c := session.NewController(client, session.WithSessionID("http-test"))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) domain.Snapshot {
	t.Helper()
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	return snap
}

func TestHandler_StateAndInput(t *testing.T) {
	h := rapporthttp.NewHandler(newSession(t, echoClient()))

	w := do(t, h, http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	snap := decodeSnapshot(t, w)
	assert.Equal(t, "http-test", snap.SessionID)
	assert.Equal(t, domain.PhaseIdle, snap.Phase)
	assert.Contains(t, w.Body.String(), `"transcript":[]`)

	w = do(t, h, http.MethodPut, "/input", `{"text":"你好"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "你好", decodeSnapshot(t, w).PendingInput)

	w = do(t, h, http.MethodPut, "/input", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_SubmitAndWait(t *testing.T) {
	h := rapporthttp.NewHandler(newSession(t, echoClient()))

	w := do(t, h, http.MethodPost, "/submit?wait=true", `{"message":"請介紹一個你最有成就感的專案？"}`)
	require.Equal(t, http.StatusOK, w.Code)

	snap := decodeSnapshot(t, w)
	assert.Equal(t, []domain.Turn{
		domain.UserTurn("請介紹一個你最有成就感的專案？"),
		domain.AssistantTurn("echo: 請介紹一個你最有成就感的專案？"),
	}, snap.Transcript.Turns())
	assert.False(t, snap.InFlight)
}

func TestHandler_SubmitBlank(t *testing.T) {
	sess := newSession(t, echoClient())
	h := rapporthttp.NewHandler(sess)

	w := do(t, h, http.MethodPost, "/submit", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrBlankInput.Error())
	assert.Equal(t, 0, sess.Snapshot().Transcript.Len())

	// Without a body the pending input is submitted, and it is empty.
	w = do(t, h, http.MethodPost, "/submit", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_SubmitWhileBusy(t *testing.T) {
	release := make(chan struct{})
	blocking := ports.AnswerClientFunc(func(context.Context, string) (domain.Answer, error) {
		<-release
		return domain.Answer{Text: "done"}, nil
	})
	sess := newSession(t, blocking)
	h := rapporthttp.NewHandler(sess)

	w := do(t, h, http.MethodPost, "/submit", `{"message":"第一個"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	accepted := decodeSnapshot(t, w)
	assert.True(t, accepted.InFlight)
	assert.Equal(t, 1, accepted.Transcript.Len())

	do(t, h, http.MethodPut, "/input", `{"text":"草稿"}`)

	w = do(t, h, http.MethodPost, "/submit", `{"message":"第二個"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = do(t, h, http.MethodPost, "/submit", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	snap := sess.Snapshot()
	assert.Equal(t, "草稿", snap.PendingInput)
	assert.Equal(t, 1, snap.Transcript.Len())

	close(release)
	sess.Wait()
	assert.Equal(t, 2, sess.Snapshot().Transcript.Len())
}

func TestHandler_HealthInfoMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("rapport_submissions_total 0\n"))
	})
	h := rapporthttp.NewHandler(newSession(t, echoClient()),
		rapporthttp.WithVersion("1.2.3\n"),
		rapporthttp.WithMetricsHandler(metrics),
	)

	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/info", "")
	assert.JSONEq(t, `{"app":"rapport-http","version":"1.2.3","session_id":"http-test"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/metrics", "")
	assert.Contains(t, w.Body.String(), "rapport_submissions_total")

	w = do(t, h, http.MethodOptions, "/submit", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents_StreamsDiffs(t *testing.T) {
	sess := newSession(t, echoClient())
	srv := httptest.NewServer(rapporthttp.NewHandler(sess))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?watch=transcript", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	next := func() string {
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed")
				if strings.HasPrefix(line, "data: ") {
					return strings.TrimPrefix(line, "data: ")
				}
			case <-ctx.Done():
				t.Fatal("timed out waiting for event")
			}
		}
	}

	assert.Equal(t, "connected", next())
	assert.Contains(t, next(), `"session_id":"http-test"`)

	// Input-only changes are filtered out by watch=transcript.
	sess.SetInput("你好")
	_, err = sess.Ask(ctx, "你好")
	require.NoError(t, err)

	var diff domain.StateDiff
	require.NoError(t, json.Unmarshal([]byte(next()), &diff))
	require.NotNil(t, diff.Turns)
	assert.Equal(t, []domain.Turn{domain.UserTurn("你好")}, diff.Turns.Appended)

	require.NoError(t, json.Unmarshal([]byte(next()), &diff))
	require.NotNil(t, diff.Turns)
	assert.Equal(t, []domain.Turn{domain.AssistantTurn("echo: 你好")}, diff.Turns.Appended)
}
