// Package remote implements ports.AnswerClient against the HTTP answer endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/ports"
)

// DefaultBaseURL is the local development endpoint used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000"

// maxDetailSize caps how much of an error body is kept for diagnostics.
const maxDetailSize = 4096

var errNullBody = errors.New("response body is null")

// chatRequest is the wire body of POST /chat.
type chatRequest struct {
	Message string `json:"message"`
}

// chatResponse is the wire body of a successful reply. Answer is optional.
type chatResponse struct {
	Answer *string `json:"answer"`
}

// Client implements ports.AnswerClient over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ ports.AnswerClient = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger configures a logger for exchange diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the endpoint at baseURL.
// An empty baseURL falls back to DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No Timeout: an exchange always runs to completion.
		http:   &http.Client{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized endpoint base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send performs one POST /chat exchange carrying only message.
func (c *Client) Send(ctx context.Context, message string) (domain.Answer, error) {
	body, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return domain.Answer{}, &domain.ExchangeError{Kind: domain.FailureTransport, Detail: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return domain.Answer{}, &domain.ExchangeError{Kind: domain.FailureTransport, Detail: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Answer{}, &domain.ExchangeError{Kind: domain.FailureTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Answer{}, c.httpFailure(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		// The status arrived but the body did not: the exchange could not complete.
		return domain.Answer{}, &domain.ExchangeError{Kind: domain.FailureTransport, Detail: "read body", Err: err}
	}

	var payload *chatResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return domain.Answer{}, &domain.ExchangeError{Kind: domain.FailureDecode, Detail: truncate(string(data)), Err: err}
	}
	if payload == nil {
		// A JSON null has no answer field to fall back from.
		return domain.Answer{}, &domain.ExchangeError{Kind: domain.FailureDecode, Detail: truncate(string(data)), Err: errNullBody}
	}

	if payload.Answer == nil {
		c.logger.Debug("Answer field missing, using fallback", "status", resp.StatusCode)
		return domain.Answer{Text: domain.FallbackAnswer, Fallback: true}, nil
	}
	return domain.Answer{Text: *payload.Answer}, nil
}

func (c *Client) httpFailure(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDetailSize))
	if err != nil {
		c.logger.Debug("Failed to read error body", "status", resp.StatusCode, "err", err)
	}
	detail := strings.TrimSpace(string(data))
	if detail == "" {
		detail = fmt.Sprintf("Request failed with status %d", resp.StatusCode)
	}
	return &domain.ExchangeError{
		Kind:   domain.FailureHTTP,
		Status: resp.StatusCode,
		Detail: detail,
	}
}

func truncate(s string) string {
	if len(s) <= maxDetailSize {
		return s
	}
	return s[:maxDetailSize]
}
