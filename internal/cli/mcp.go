package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aretw0/rapport"
	"github.com/aretw0/rapport/pkg/adapters/mcp"
)

// MCPOptions configures the MCP adapter.
type MCPOptions struct {
	Options

	// Transport is "stdio" or "sse".
	Transport string
	// Port is the SSE listen port.
	Port int
}

// RunMCP exposes one chat session as an MCP server.
func RunMCP(opts MCPOptions) error {
	cfg, err := LoadConfig(opts.Options)
	if err != nil {
		return err
	}
	// MCP over stdio owns stdout, so logs always go to stderr.
	logger := createLogger(opts.Debug, false, cfg.LogLevel)
	log.SetOutput(os.Stderr)

	chat, err := newChat(cfg, logger)
	if err != nil {
		return err
	}
	defer chat.Close()

	srv := mcp.NewServer(chat, rapport.Version, mcp.WithLogger(logger))

	switch opts.Transport {
	case "", "stdio":
		logger.Info("Starting Rapport MCP Server (Stdio)")
		return srv.ServeStdio()
	case "sse":
		sigCtx := NewSignalContext(context.Background())
		defer sigCtx.Cancel()
		logger.Info("Starting Rapport MCP Server (SSE)", "port", opts.Port)
		return srv.ServeSSE(sigCtx, opts.Port)
	default:
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", opts.Transport)
	}
}
