package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/rapport/internal/stub"
	httpAdapter "github.com/aretw0/rapport/pkg/adapters/http"
)

// StubOptions configures the development answer endpoint.
type StubOptions struct {
	Options

	// Port overrides the configured stub port when non-zero.
	Port int
	// Delay holds every answer, to make the in-flight phase visible in a client.
	Delay time.Duration
}

// RunStub serves the development answer endpoint until interrupted.
func RunStub(opts StubOptions) error {
	cfg, err := LoadConfig(opts.Options)
	if err != nil {
		return err
	}
	if opts.Port != 0 {
		cfg.Stub.Port = opts.Port
	}
	logger := createLogger(opts.Debug, false, cfg.LogLevel)

	backend, err := stub.New(stub.WithLogger(logger), stub.WithDelay(opts.Delay))
	if err != nil {
		return err
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	return httpAdapter.Serve(sigCtx, fmt.Sprintf(":%d", cfg.Stub.Port), backend.Handler(), logger)
}
