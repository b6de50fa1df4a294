package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/rapport/pkg/domain"
)

// Printer writes session snapshots to a line-oriented terminal.
//
// It remembers what it already printed, so feeding it every snapshot (or
// only some of them) prints each turn, typing indicator and failure once.
type Printer struct {
	w        io.Writer
	render   func(string) (string, error)
	echoUser bool

	seen      int
	started   bool
	typing    bool
	lastError string
}

// PrinterOption configures the Printer.
type PrinterOption func(*Printer)

// WithEchoUser prints user turns too. Off by default since the user just typed them.
func WithEchoUser(echo bool) PrinterOption {
	return func(p *Printer) {
		p.echoUser = echo
	}
}

// WithRenderer sets the markdown renderer used for assistant turns.
func WithRenderer(render func(string) (string, error)) PrinterOption {
	return func(p *Printer) {
		p.render = render
	}
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, opts ...PrinterOption) *Printer {
	p := &Printer{
		w:      w,
		render: PlainRenderer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Print writes whatever changed since the previous call.
func (p *Printer) Print(snap domain.Snapshot) {
	if !p.started {
		p.started = true
		if snap.Transcript.Len() == 0 {
			fmt.Fprintf(p.w, "%s\n\n", domain.EmptyHint)
		}
	}

	for _, turn := range snap.Transcript.Since(p.seen) {
		p.printTurn(turn)
	}
	if n := snap.Transcript.Len(); n > p.seen {
		p.seen = n
	}

	if snap.InFlight && !p.typing {
		fmt.Fprintf(p.w, "%s: %s\n", domain.LabelAssistant, domain.TypingIndicator)
	}
	p.typing = snap.InFlight

	if snap.LastError != p.lastError {
		if snap.LastError != "" {
			fmt.Fprintf(p.w, "!! %s\n", snap.LastError)
		}
		p.lastError = snap.LastError
	}
}

// PrintTranscript writes every turn of snap regardless of what was printed before.
func (p *Printer) PrintTranscript(snap domain.Snapshot) {
	for _, turn := range snap.Transcript.Turns() {
		fmt.Fprintf(p.w, "%s: %s\n", turn.Role.Label(), turn.Content)
	}
}

func (p *Printer) printTurn(turn domain.Turn) {
	if turn.Role == domain.RoleUser {
		if p.echoUser {
			fmt.Fprintf(p.w, "%s: %s\n", domain.LabelUser, turn.Content)
		}
		return
	}

	out, err := p.render(turn.Content)
	if err != nil {
		out = turn.Content + "\n"
	}
	fmt.Fprintf(p.w, "%s:\n%s", domain.LabelAssistant, out)
	if !strings.HasSuffix(out, "\n") {
		fmt.Fprintln(p.w)
	}
}
