// Package stub implements a development answer endpoint.
//
// It speaks the same contract as the real backend (POST /chat with
// {"message"} answered by {"answer"}) and validates every request against the
// embedded OpenAPI document, so the client can be exercised end to end without
// the real service.
package stub

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/rapport/internal/logging"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
)

//go:embed openapi.yaml
var rawSpec []byte

// maxBodySize bounds the request bodies the stub reads.
const maxBodySize = 1 << 20

// Responder produces the answer to one message. Returning an error makes the
// stub answer 500 with the error text as body.
type Responder func(ctx context.Context, message string) (string, error)

// EchoResponder answers every message with a canned reply quoting it.
func EchoResponder(_ context.Context, message string) (string, error) {
	return fmt.Sprintf("謝謝您的提問：「%s」。這是開發用的示範回覆。", message), nil
}

// Server is the development answer endpoint.
type Server struct {
	doc       *openapi3.T
	responder Responder
	delay     time.Duration
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithResponder replaces EchoResponder.
func WithResponder(r Responder) Option {
	return func(s *Server) {
		s.responder = r
	}
}

// WithDelay holds every answer for d, to make the in-flight phase observable.
func WithDelay(d time.Duration) Option {
	return func(s *Server) {
		s.delay = d
	}
}

// WithLogger configures request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return doc, nil
}

// New creates the stub server.
func New(opts ...Option) (*Server, error) {
	doc, err := LoadSpec()
	if err != nil {
		return nil, err
	}
	s := &Server{
		doc:       doc,
		responder: EchoResponder,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the HTTP handler of the stub.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/chat", s.Chat)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	return r
}

type chatResponse struct {
	Answer string `json:"answer"`
}

// Chat handles the POST /chat request.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		s.logger.Warn("Chat: Invalid request body", "err", err)
		http.Error(w, "invalid JSON body", http.StatusUnprocessableEntity)
		return
	}
	if err := s.validate("ChatRequest", body); err != nil {
		s.logger.Warn("Chat: Request rejected by schema", "err", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	message := body.(map[string]any)["message"].(string)

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}

	answer, err := s.responder(r.Context(), message)
	if err != nil {
		s.logger.Error("Chat: Responder failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.logger.Debug("Chat: Answered", "message_size", len(message), "answer_size", len(answer))
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(chatResponse{Answer: answer}); err != nil {
		s.logger.Error("Chat response encode failed", "err", err)
	}
}

func (s *Server) validate(schema string, value any) error {
	ref, ok := s.doc.Components.Schemas[schema]
	if !ok || ref.Value == nil {
		return fmt.Errorf("schema %s not found", schema)
	}
	return ref.Value.VisitJSON(value)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.doc.Info != nil {
		apiVersion = strings.TrimSpace(s.doc.Info.Version)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"app":         "rapport-stub",
		"api_version": apiVersion,
	})
}
