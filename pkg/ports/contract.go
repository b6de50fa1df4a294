package ports

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/rapport/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunAnswerClientContract runs a suite of tests to verify that an AnswerClient
// speaking the /chat protocol adheres to the defined interface contract.
// newClient builds a client for the given endpoint base URL.
func RunAnswerClientContract(t *testing.T, newClient func(baseURL string) AnswerClient) {
	ctx := context.Background()

	t.Run("Sends Only The Message", func(t *testing.T) {
		var gotBody map[string]any
		var gotPath, gotMethod, gotType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath, gotMethod, gotType = r.URL.Path, r.Method, r.Header.Get("Content-Type")
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, &gotBody)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"answer":"我曾經..."}`))
		}))
		defer srv.Close()

		answer, err := newClient(srv.URL).Send(ctx, "請介紹一個你最有成就感的專案？")
		require.NoError(t, err)
		assert.Equal(t, "我曾經...", answer.Text)
		assert.False(t, answer.Fallback)

		assert.Equal(t, http.MethodPost, gotMethod)
		assert.Equal(t, "/chat", gotPath)
		assert.Contains(t, gotType, "application/json")
		assert.Equal(t, map[string]any{"message": "請介紹一個你最有成就感的專案？"}, gotBody)
	})

	t.Run("Missing Answer Uses Fallback", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		answer, err := newClient(srv.URL).Send(ctx, "你好")
		require.NoError(t, err)
		assert.Equal(t, domain.FallbackAnswer, answer.Text)
		assert.True(t, answer.Fallback)
	})

	t.Run("Non-Success Status Is HTTP Failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		}))
		defer srv.Close()

		_, err := newClient(srv.URL).Send(ctx, "你好")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrHTTP)

		var xerr *domain.ExchangeError
		require.ErrorAs(t, err, &xerr)
		assert.Equal(t, http.StatusInternalServerError, xerr.Status)
		assert.Equal(t, "boom", xerr.Detail)
	})

	t.Run("Undecodable Body Is Decode Failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>not json</html>`))
		}))
		defer srv.Close()

		_, err := newClient(srv.URL).Send(ctx, "你好")
		assert.ErrorIs(t, err, domain.ErrDecode)
	})

	t.Run("Unreachable Endpoint Is Transport Failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := newClient(url).Send(ctx, "你好")
		assert.ErrorIs(t, err, domain.ErrTransport)
	})
}
