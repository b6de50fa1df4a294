package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/rapport"
	"github.com/aretw0/rapport/internal/stub"
	httpAdapter "github.com/aretw0/rapport/pkg/adapters/http"
	"golang.org/x/sync/errgroup"
)

// ServeOptions configures the HTTP adapter.
type ServeOptions struct {
	Options

	// Port overrides the configured HTTP port when non-zero.
	Port int
	// WithStub also runs the development answer endpoint and points the session at it.
	WithStub bool
}

// RunServe exposes one chat session over HTTP until interrupted.
func RunServe(opts ServeOptions) error {
	cfg, err := LoadConfig(opts.Options)
	if err != nil {
		return err
	}
	if opts.Port != 0 {
		cfg.HTTP.Port = opts.Port
	}
	if opts.WithStub {
		cfg.APIBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Stub.Port)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := createLogger(opts.Debug, false, cfg.LogLevel)

	chat, err := newChat(cfg, logger)
	if err != nil {
		return err
	}
	defer chat.Close()

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	g, ctx := errgroup.WithContext(sigCtx)

	if opts.WithStub {
		backend, err := stub.New(stub.WithLogger(logger))
		if err != nil {
			return err
		}
		g.Go(func() error {
			return httpAdapter.Serve(ctx, fmt.Sprintf(":%d", cfg.Stub.Port), backend.Handler(), logger.With("component", "stub"))
		})
	}

	handler := httpAdapter.NewHandler(chat,
		httpAdapter.WithLogger(logger),
		httpAdapter.WithVersion(strings.TrimSpace(rapport.Version)),
		httpAdapter.WithMetricsHandler(chat.MetricsHandler()),
	)
	g.Go(func() error {
		return httpAdapter.Serve(ctx, fmt.Sprintf(":%d", cfg.HTTP.Port), handler, logger)
	})

	err = g.Wait()
	if sig := sigCtx.Signal(); sig != nil {
		logger.Info("Server stopped gracefully", "signal", sig)
	}
	return handleExecutionError(err)
}
