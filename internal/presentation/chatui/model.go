// Package chatui is the full-screen terminal front end of a chat session.
package chatui

import (
	"context"
	"errors"
	"strings"

	"github.com/aretw0/rapport/internal/presentation/tui"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/session"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// snapshotMsg carries a snapshot from the session subscription.
type snapshotMsg domain.Snapshot

// closedMsg reports that the session closed the subscription.
type closedMsg struct{}

// Model renders a session and forwards typing and submissions to it.
// Submission state comes from the session only: the model never decides on
// its own whether a send is allowed.
type Model struct {
	ctx     context.Context
	session tui.Session
	sub     <-chan domain.Snapshot
	cancel  func()
	render  func(string) (string, error)

	snap   domain.Snapshot
	input  textinput.Model
	notice string
	width  int
	height int

	quitting bool
}

// Option configures the Model.
type Option func(*Model)

// WithRenderer sets the markdown renderer used for assistant turns.
func WithRenderer(render func(string) (string, error)) Option {
	return func(m *Model) {
		m.render = render
	}
}

// NewModel subscribes to sess. The subscription is released when the program quits.
func NewModel(ctx context.Context, sess tui.Session, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = domain.InputPlaceholder
	ti.CharLimit = session.DefaultMaxInputSize
	ti.Focus()

	sub, cancel := sess.Subscribe()
	m := Model{
		ctx:     ctx,
		session: sess,
		sub:     sub,
		cancel:  cancel,
		render:  tui.PlainRenderer,
		snap:    sess.Snapshot(),
		input:   ti,
		width:   100,
		height:  30,
	}
	for _, opt := range opts {
		opt(&m)
	}
	ti.SetValue(m.snap.PendingInput)
	m.input = ti
	return m
}

func waitForSnapshot(sub <-chan domain.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-sub
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForSnapshot(m.sub))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-16)
		return m, nil

	case snapshotMsg:
		m.snap = domain.Snapshot(msg)
		return m, waitForSnapshot(m.sub)

	case closedMsg:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		case "enter":
			return m.submit(), nil
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.snap = m.session.SetInput(after)
		m.notice = ""
	}
	return m, cmd
}

func (m Model) submit() Model {
	text, err := session.SanitizeInput(m.input.Value())
	if err != nil {
		m.notice = err.Error()
		return m
	}
	m.session.SetInput(text)

	_, err = m.session.Submit(m.ctx)
	switch {
	case errors.Is(err, domain.ErrBlankInput):
		m.notice = domain.EmptyHint
	case errors.Is(err, domain.ErrSessionBusy):
		m.notice = domain.SendingLabel
	case err != nil:
		m.notice = err.Error()
	default:
		m.notice = ""
		m.input.Reset()
	}
	m.snap = m.session.Snapshot()
	return m
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(domain.Title) + "\n")
	b.WriteString(dimStyle.Render(domain.Subtitle) + "\n\n")

	if m.snap.Transcript.Len() == 0 {
		b.WriteString(dimStyle.Render(domain.EmptyHint) + "\n")
	}
	for _, turn := range m.snap.Transcript.Turns() {
		b.WriteString(m.renderTurn(turn))
	}
	if m.snap.InFlight {
		b.WriteString(assistantLabelStyle.Render(domain.LabelAssistant) + "  " + dimStyle.Render(domain.TypingIndicator) + "\n")
	}
	if m.snap.LastError != "" {
		b.WriteString("\n" + errorStyle.Render(m.snap.LastError) + "\n")
	}

	b.WriteString("\n" + m.input.View() + " ")
	if m.snap.InFlight {
		b.WriteString(busyButtonStyle.Render(domain.SendingLabel))
	} else {
		b.WriteString(buttonStyle.Render(domain.SendLabel))
	}
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(dimStyle.Render(m.notice) + "\n")
	}
	b.WriteString(helpStyle.Render("  Enter: send  Esc: quit"))
	return b.String()
}

func (m Model) renderTurn(turn domain.Turn) string {
	if turn.Role == domain.RoleUser {
		return userLabelStyle.Render(domain.LabelUser) + "  " + turn.Content + "\n"
	}
	out, err := m.render(turn.Content)
	if err != nil {
		out = turn.Content + "\n"
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return assistantLabelStyle.Render(domain.LabelAssistant) + "\n" + out
}

// Run starts the full-screen program and blocks until the user quits.
func Run(ctx context.Context, sess tui.Session, opts ...Option) error {
	m := NewModel(ctx, sess, opts...)
	defer m.cancel()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
