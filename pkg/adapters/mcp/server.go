package mcp

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
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TranscriptURI is the resource exposing the session transcript.
const TranscriptURI = "rapport://transcript"

// AskResponse is the structured result of the ask tool.
type AskResponse struct {
	Answer   string          `json:"answer,omitempty" jsonschema_description:"The interviewee's reply, empty when the exchange failed"`
	Failed   bool            `json:"failed" jsonschema_description:"True when the answer endpoint could not be reached or answered with an error"`
	Error    string          `json:"error,omitempty" jsonschema_description:"User-facing failure message"`
	Snapshot domain.Snapshot `json:"snapshot" jsonschema_description:"The session state after the exchange"`
}

// Session is the part of the submission controller the MCP adapter drives.
type Session interface {
	SessionID() string
	Snapshot() domain.Snapshot
	Ask(ctx context.Context, text string) (domain.Snapshot, error)
}

var _ Session = (*session.Controller)(nil)

// Server exposes a chat session as an MCP Server.
type Server struct {
	session   Session
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures diagnostics. MCP over stdio owns stdout, so the logger must write elsewhere.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sess Session, version string, opts ...Option) *Server {
	s := &Server{
		session:   sess,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("rapport-mcp", strings.TrimSpace(version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	// TOOL: ask
	askTool := mcp.NewTool("ask",
		mcp.WithDescription("Ask the interviewee a question and wait for the reply."),
		mcp.WithString("message", mcp.Required(), mcp.Description("The question to send")),
		mcp.WithOutputSchema[AskResponse](),
	)
	s.mcpServer.AddTool(askTool, mcp.NewStructuredToolHandler(s.handleAsk))

	// TOOL: transcript
	s.mcpServer.AddTool(mcp.NewTool("transcript",
		mcp.WithDescription("Get the conversation so far, oldest turn first."),
	), s.handleTranscript)
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (AskResponse, error) {
	message, _ := args["message"].(string)

	clean, err := session.SanitizeInput(message)
	if err != nil {
		s.logger.Warn("MCP Ask: Input rejected", "err", err, "size", len(message))
		return AskResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	snap, err := s.session.Ask(ctx, clean)
	if err != nil {
		return AskResponse{}, fmt.Errorf("ask failed: %w", err)
	}

	resp := AskResponse{Snapshot: snap}
	if snap.LastError != "" {
		resp.Failed = true
		resp.Error = snap.LastError
		return resp, nil
	}
	if last, ok := snap.Transcript.Last(); ok && last.Role == domain.RoleAssistant {
		resp.Answer = last.Content
	}
	return resp, nil
}

func (s *Server) handleTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(s.session.Snapshot().Transcript)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	// EXPOSE: rapport://transcript
	s.mcpServer.AddResource(mcp.NewResource(TranscriptURI, "Session Transcript",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.session.Snapshot().Transcript)
		if err != nil {
			return nil, fmt.Errorf("failed to encode transcript: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      TranscriptURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
