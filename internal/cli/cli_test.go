package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/rapport/internal/config"
	"github.com/aretw0/rapport/internal/stub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvAPIBaseURL, config.EnvLegacyBaseURL, config.EnvLogLevel,
		config.EnvHTTPPort, config.EnvRedisAddr, config.EnvSessionID,
	} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoadConfig_FlagsWin(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "rapport.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_base_url: http://file:8000\n"), 0o600))
	t.Setenv(config.EnvAPIBaseURL, "http://env:8000")

	cfg, err := LoadConfig(Options{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "http://env:8000", cfg.APIBaseURL)

	cfg, err = LoadConfig(Options{ConfigPath: path, BaseURL: "http://flag:8000", SessionID: "s", Debug: true})
	require.NoError(t, err)
	assert.Equal(t, "http://flag:8000", cfg.APIBaseURL)
	assert.Equal(t, "s", cfg.SessionID)
	assert.Equal(t, "debug", cfg.LogLevel)

	_, err = LoadConfig(Options{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestRunChat_PlainREPL(t *testing.T) {
	isolateEnv(t)
	backend, err := stub.New()
	require.NoError(t, err)
	srv := httptest.NewServer(backend.Handler())
	defer srv.Close()

	var out bytes.Buffer
	err = runChat(ChatOptions{Options: Options{BaseURL: srv.URL}}, strings.NewReader("你好\n"), &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "面試官: 你好", "user turns are echoed when input is not a terminal")
	assert.Contains(t, text, "這是開發用的示範回覆")
}

func TestRunChat_FullScreenNeedsTerminal(t *testing.T) {
	isolateEnv(t)
	err := runChat(ChatOptions{Options: Options{}, FullScreen: true}, strings.NewReader(""), io.Discard)
	assert.ErrorContains(t, err, "terminal")
}

func TestHandleExecutionError(t *testing.T) {
	assert.NoError(t, handleExecutionError(context.Canceled))
	assert.NoError(t, handleExecutionError(io.EOF))
	boom := errors.New("boom")
	assert.Equal(t, boom, handleExecutionError(boom))
}

func TestLogCompletion(t *testing.T) {
	var buf bytes.Buffer
	logCompletion(&buf, os.Interrupt, false)
	assert.Contains(t, buf.String(), "[CTRL+C]")

	buf.Reset()
	logCompletion(&buf, nil, true)
	assert.Empty(t, buf.String())
}
