package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/rapport"
	"github.com/aretw0/rapport/internal/presentation/chatui"
	"github.com/aretw0/rapport/internal/presentation/tui"
	"golang.org/x/term"
)

// ChatOptions configures the interactive chat.
type ChatOptions struct {
	Options

	// FullScreen selects the bubbletea front end instead of the line REPL.
	FullScreen bool
	// Plain disables the banner and markdown rendering.
	Plain bool
}

// RunChat runs an interactive chat on the terminal.
func RunChat(opts ChatOptions) error {
	return runChat(opts, os.Stdin, os.Stdout)
}

func runChat(opts ChatOptions, in io.Reader, out io.Writer) error {
	cfg, err := LoadConfig(opts.Options)
	if err != nil {
		return err
	}
	logger := createLogger(opts.Debug, true, cfg.LogLevel)

	interactive := isTerminal(in) && isTerminal(out)
	plain := opts.Plain || !interactive

	chat, err := newChat(cfg, logger)
	if err != nil {
		return err
	}
	defer chat.Close()

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	if opts.FullScreen {
		if !interactive {
			return fmt.Errorf("full-screen chat needs a terminal")
		}
		err := chatui.Run(sigCtx, chat, chatui.WithRenderer(tui.NewRenderer()))
		return handleExecutionError(err)
	}

	if !plain {
		tui.PrintBanner(out, rapport.Version)
	}

	printerOpts := []tui.PrinterOption{tui.WithEchoUser(!interactive)}
	if !plain {
		printerOpts = append(printerOpts, tui.WithRenderer(tui.NewRenderer()))
	}
	repl := tui.NewREPL(chat, in, out,
		tui.WithPrinter(tui.NewPrinter(out, printerOpts...)),
		tui.WithLogger(logger),
	)

	runErr := repl.Run(sigCtx)
	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}
	logCompletion(out, sigCtx.Signal(), plain)
	return handleExecutionError(runErr)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
