// Package prompt presents an update decision in the terminal and reports
// what the user chose.
package prompt

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"nudge/internal/update"
)

// Outcome is what the user chose.
type Outcome int

const (
	// OutcomeClose dismisses the prompt without snoozing.
	OutcomeClose Outcome = iota
	// OutcomeAccept starts the update.
	OutcomeAccept
	// OutcomeLater snoozes the prompt.
	OutcomeLater
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeAccept:
		return "accept"
	case OutcomeLater:
		return "later"
	default:
		return "close"
	}
}

const defaultWidth = 72

// Model is the bubbletea model for the update prompt.
type Model struct {
	info   *update.UpdateInfo
	keys   KeyMap
	help   help.Model
	format string
	width  int
	notes  string

	outcome Outcome
	done    bool
}

// NewModel creates a prompt for info. Critical updates cannot be snoozed,
// so their Later binding is disabled and hidden from help.
func NewModel(info *update.UpdateInfo, format string) Model {
	keys := DefaultKeyMap()
	if info != nil && info.IsCritical {
		keys.Later.SetEnabled(false)
	}
	m := Model{
		info:   info,
		keys:   keys,
		help:   help.New(),
		format: format,
		width:  defaultWidth,
	}
	m.notes = m.renderNotes()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w := msg.Width - 4
		if w > defaultWidth {
			w = defaultWidth
		}
		if w > 20 && w != m.width {
			m.width = w
			m.notes = m.renderNotes()
		}
		m.help.Width = m.width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Accept):
			return m.finish(OutcomeAccept)
		case key.Matches(msg, m.keys.Later):
			return m.finish(OutcomeLater)
		case key.Matches(msg, m.keys.Close):
			return m.finish(OutcomeClose)
		}
	}
	return m, nil
}

func (m Model) finish(o Outcome) (tea.Model, tea.Cmd) {
	m.outcome = o
	m.done = true
	return m, tea.Quit
}

// View implements tea.Model.
func (m Model) View() string {
	if m.done || m.info == nil {
		return ""
	}
	lines := []string{
		styleTitle.Render("Update available"),
		"",
		versionLine(m.info),
	}
	if m.notes != "" {
		lines = append(lines, "", m.notes)
	}
	lines = append(lines, "", m.help.View(m.keys))
	return styleBox.Width(m.width).Render(strings.Join(lines, "\n")) + "\n"
}

// Outcome returns the user's choice. It is only meaningful once Done.
func (m Model) Outcome() Outcome {
	return m.outcome
}

// Done reports whether the user has chosen.
func (m Model) Done() bool {
	return m.done
}

func (m Model) renderNotes() string {
	if m.info == nil || strings.TrimSpace(m.info.ReleaseNotes) == "" {
		return ""
	}
	return noteRenderer(m.format, m.width-4)(m.info.ReleaseNotes)
}

// Run shows the prompt on in/out until the user chooses or ctx is done.
// A cancelled context counts as close.
func Run(ctx context.Context, info *update.UpdateInfo, format string, in io.Reader, out io.Writer) (Outcome, error) {
	p := tea.NewProgram(NewModel(info, format),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeClose, nil
		}
		return OutcomeClose, fmt.Errorf("run prompt: %w", err)
	}
	m, ok := final.(Model)
	if !ok || !m.done {
		return OutcomeClose, nil
	}
	return m.outcome, nil
}

// IsInteractive reports whether both f and stdout are terminals.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
