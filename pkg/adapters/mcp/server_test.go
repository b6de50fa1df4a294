package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/ports"
	"github.com/aretw0/rapport/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, client ports.AnswerClient) (*Server, *session.Controller) {
	t.Helper()
	sess := session.NewController(client)
	t.Cleanup(func() { _ = sess.Close() })
	return NewServer(sess, "test\n"), sess
}

func TestHandleAsk_Answer(t *testing.T) {
	s, _ := newTestServer(t, ports.AnswerClientFunc(func(_ context.Context, msg string) (domain.Answer, error) {
		return domain.Answer{Text: "我曾經..."}, nil
	}))

	resp, err := s.handleAsk(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"message": "請介紹一個你最有成就感的專案？",
	})
	require.NoError(t, err)
	assert.False(t, resp.Failed)
	assert.Equal(t, "我曾經...", resp.Answer)
	assert.Equal(t, 2, resp.Snapshot.Transcript.Len())
}

func TestHandleAsk_Failure(t *testing.T) {
	s, _ := newTestServer(t, ports.AnswerClientFunc(func(context.Context, string) (domain.Answer, error) {
		return domain.Answer{}, &domain.ExchangeError{Kind: domain.FailureHTTP, Status: 500, Detail: "boom"}
	}))

	resp, err := s.handleAsk(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"message": "你好"})
	require.NoError(t, err)
	assert.True(t, resp.Failed)
	assert.Equal(t, domain.FailureMessage, resp.Error)
	assert.Empty(t, resp.Answer)
}

func TestHandleAsk_Blank(t *testing.T) {
	s, sess := newTestServer(t, ports.AnswerClientFunc(func(context.Context, string) (domain.Answer, error) {
		t.Fatal("no exchange expected")
		return domain.Answer{}, nil
	}))

	_, err := s.handleAsk(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"message": "  "})
	assert.ErrorIs(t, err, domain.ErrBlankInput)

	_, err = s.handleAsk(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{})
	assert.ErrorIs(t, err, domain.ErrBlankInput)
	assert.Equal(t, 0, sess.Snapshot().Transcript.Len())
}

func TestHandleTranscript(t *testing.T) {
	s, sess := newTestServer(t, ports.AnswerClientFunc(func(context.Context, string) (domain.Answer, error) {
		return domain.Answer{Text: "您好"}, nil
	}))

	res, err := s.handleTranscript(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "[]", text.Text)

	_, err = sess.Ask(context.Background(), "你好")
	require.NoError(t, err)

	res, err = s.handleTranscript(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	text = res.Content[0].(mcp.TextContent)
	assert.JSONEq(t, `[{"role":"user","content":"你好"},{"role":"assistant","content":"您好"}]`, text.Text)
}
