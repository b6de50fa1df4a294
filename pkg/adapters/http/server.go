package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/session"
	"github.com/go-chi/chi/v5"
)

// Session is the part of the submission controller the HTTP adapter drives.
type Session interface {
	SessionID() string
	Snapshot() domain.Snapshot
	Subscribe() (<-chan domain.Snapshot, func())
	SetInput(text string) domain.Snapshot
	Submit(ctx context.Context) (*session.Exchange, error)
	SubmitText(ctx context.Context, text string) (*session.Exchange, error)
}

var _ Session = (*session.Controller)(nil)

// Server exposes one chat session over HTTP and Server-Sent Events.
type Server struct {
	Session Session

	logger  *slog.Logger
	version string
	metrics http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version reported by GET /info.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = strings.TrimSpace(version)
	}
}

// WithMetricsHandler mounts h (usually promhttp.Handler) on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler creates the HTTP handler for a session.
func NewHandler(sess Session, opts ...Option) http.Handler {
	server := &Server{
		Session: sess,
		logger:  logging.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/state", server.GetState)
	r.Put("/input", server.PutInput)
	r.Post("/submit", server.Submit)
	r.Get("/events", server.SubscribeEvents)
	if server.metrics != nil {
		r.Method(http.MethodGet, "/metrics", server.metrics)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// InputRequest is the body of PUT /input.
type InputRequest struct {
	Text string `json:"text"`
}

// SubmitRequest is the optional body of POST /submit.
// When Message is set it replaces the pending input before submitting.
type SubmitRequest struct {
	Message *string `json:"message,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// GetState handles the GET /state request.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Session.Snapshot(), s.logger)
}

// PutInput handles the PUT /input request.
func (s *Server) PutInput(w http.ResponseWriter, r *http.Request) {
	var body InputRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("PutInput: Invalid request body", "err", err)
		writeError(w, http.StatusBadRequest, "invalid request body", s.logger)
		return
	}

	text, err := session.SanitizeInput(body.Text)
	if err != nil {
		s.logger.Warn("PutInput: Input rejected", "err", err, "size", len(body.Text))
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid input: %v", err), s.logger)
		return
	}

	writeJSON(w, http.StatusOK, s.Session.SetInput(text), s.logger)
}

// Submit handles the POST /submit request.
//
// The submission is accepted with 202 and the Sending snapshot. With
// ?wait=true the handler waits for the exchange and answers 200 with the
// resolved snapshot instead.
func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	var body SubmitRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.logger.Warn("Submit: Invalid request body", "err", err)
			writeError(w, http.StatusBadRequest, "invalid request body", s.logger)
			return
		}
	}

	submit := s.Session.Submit
	if body.Message != nil {
		text, err := session.SanitizeInput(*body.Message)
		if err != nil {
			s.logger.Warn("Submit: Input rejected", "err", err, "size", len(*body.Message))
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid input: %v", err), s.logger)
			return
		}
		// Replacing the draft and submitting is one step, so a rejection keeps the draft.
		submit = func(ctx context.Context) (*session.Exchange, error) {
			return s.Session.SubmitText(ctx, text)
		}
	}

	x, err := submit(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error(), s.logger)
		return
	}

	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, s.Session.Snapshot(), s.logger)
		return
	}

	snap, err := x.Wait(r.Context())
	if err != nil {
		// Client went away; the exchange still resolves in the background.
		s.logger.Info("Submit: Client stopped waiting", "err", err)
		return
	}
	writeJSON(w, http.StatusOK, snap, s.logger)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBlankInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"app":        "rapport-http",
		"version":    s.version,
		"session_id": s.Session.SessionID(),
	}
	writeJSON(w, http.StatusOK, resp, s.logger)
}

// SubscribeEvents handles the GET /events request (SSE).
//
// The stream opens with a ping and a full "snapshot" event, followed by one
// data event per state diff. The optional watch parameter (comma separated:
// transcript, phase, input, error) drops diffs that touch none of the listed fields.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		watchList = strings.Split(watch, ",")
	}

	ch, cancel := s.Session.Subscribe()
	defer cancel()

	s.logger.Info("SSE: Subscribing to Session Updates", "session_id", s.Session.SessionID())
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	var prev *domain.Snapshot
	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected")
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if prev == nil {
				data, err := json.Marshal(snap)
				if err != nil {
					s.logger.Error("SSE: Snapshot encode failed", "err", err)
					return
				}
				fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
				flusher.Flush()
				prev = &snap
				continue
			}

			diff := domain.Diff(prev, &snap)
			prev = &snap
			if diff == nil || !watched(diff, watchList) {
				continue
			}
			data, err := json.Marshal(diff)
			if err != nil {
				s.logger.Error("SSE: Diff encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func watched(diff *domain.StateDiff, watchList []string) bool {
	if len(watchList) == 0 {
		return true
	}
	for _, field := range watchList {
		switch strings.TrimSpace(field) {
		case "transcript":
			if diff.Turns != nil {
				return true
			}
		case "phase":
			if diff.Phase != nil || diff.InFlight != nil {
				return true
			}
		case "input":
			if diff.PendingInput != nil {
				return true
			}
		case "error":
			if diff.LastError != nil {
				return true
			}
		}
	}
	return false
}

// -- Helpers --

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *slog.Logger) {
	writeJSON(w, status, ErrorResponse{Error: msg}, logger)
}

// Serve runs handler on addr until ctx ends, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		logger.Info("HTTP server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
