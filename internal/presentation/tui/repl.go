package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/session"
)

// Session is the part of the submission controller the terminal front ends drive.
type Session interface {
	Snapshot() domain.Snapshot
	Subscribe() (<-chan domain.Snapshot, func())
	SetInput(text string) domain.Snapshot
	Submit(ctx context.Context) (*session.Exchange, error)
	SubmitText(ctx context.Context, text string) (*session.Exchange, error)
}

var _ Session = (*session.Controller)(nil)

// Commands understood by the REPL besides plain questions.
const (
	CmdExit       = "/exit"
	CmdQuit       = "/quit"
	CmdTranscript = "/transcript"
)

// REPL is a line-oriented chat: every line read is submitted as a question
// and the answer is printed before the next prompt.
type REPL struct {
	session Session
	in      io.Reader
	out     io.Writer
	printer *Printer
	logger  *slog.Logger
	prompt  string
}

// REPLOption configures the REPL.
type REPLOption func(*REPL)

// WithPrinter replaces the default plain Printer.
func WithPrinter(p *Printer) REPLOption {
	return func(r *REPL) {
		r.printer = p
	}
}

// WithLogger configures diagnostics.
func WithLogger(logger *slog.Logger) REPLOption {
	return func(r *REPL) {
		r.logger = logger
	}
}

// WithPrompt sets the prompt printed before each line (default "> ").
func WithPrompt(prompt string) REPLOption {
	return func(r *REPL) {
		r.prompt = prompt
	}
}

// NewREPL creates a REPL reading questions from in and writing the conversation to out.
func NewREPL(sess Session, in io.Reader, out io.Writer, opts ...REPLOption) *REPL {
	r := &REPL{
		session: sess,
		in:      in,
		out:     out,
		printer: NewPrinter(out),
		logger:  logging.NewNop(),
		prompt:  "> ",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads lines until EOF, an exit command or ctx ends.
// An outstanding exchange is awaited before the next prompt.
func (r *REPL) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	r.printer.Print(r.session.Snapshot())
	for {
		fmt.Fprint(r.out, r.prompt)

		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out)
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			line = l
		}

		switch strings.TrimSpace(line) {
		case CmdExit, CmdQuit:
			return nil
		case CmdTranscript:
			r.printer.PrintTranscript(r.session.Snapshot())
			continue
		}

		if err := r.ask(ctx, line); err != nil {
			return err
		}
	}
}

func (r *REPL) ask(ctx context.Context, line string) error {
	text, err := session.SanitizeInput(line)
	if err != nil {
		fmt.Fprintf(r.out, "!! %v\n", err)
		return nil
	}

	x, err := r.session.SubmitText(ctx, text)
	switch {
	case errors.Is(err, domain.ErrBlankInput):
		return nil
	case errors.Is(err, domain.ErrSessionBusy):
		fmt.Fprintf(r.out, "%s\n", domain.SendingLabel)
		return nil
	case err != nil:
		return err
	}

	r.printer.Print(r.session.Snapshot())
	snap, err := x.Wait(ctx)
	if err != nil {
		return err
	}
	r.logger.Debug("Exchange resolved", "version", snap.Version, "failed", snap.LastError != "")
	r.printer.Print(snap)
	return nil
}
