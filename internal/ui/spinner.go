package ui

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// opDoneMsg is sent when the wrapped operation returns
type opDoneMsg struct {
	err error
}

// spinnerModel shows a spinner until the operation finishes.
// Ctrl+C cancels the operation; the model still waits for it to return.
type spinnerModel struct {
	spinner  spinner.Model
	label    string
	cancel   context.CancelFunc
	quitKey  key.Binding
	canceled bool
	done     bool
	err      error
}

func newSpinnerModel(label string, cancel context.CancelFunc) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return spinnerModel{
		spinner: s,
		label:   label,
		cancel:  cancel,
		quitKey: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "cancel"),
		),
	}
}

// Init implements tea.Model
func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case opDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if key.Matches(msg, m.quitKey) && !m.canceled {
			m.canceled = true
			m.cancel()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	label := m.label
	if m.canceled {
		label += " (cancelling)"
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), SpinnerLabelStyle.Render(label))
}

// RunWithSpinner runs op while a spinner is drawn on stderr.
// When stdout is not a terminal, op runs directly with no output.
func RunWithSpinner(ctx context.Context, label string, op func(context.Context) error) error {
	if !IsTerminal(os.Stdout) || !IsTerminal(os.Stderr) {
		return op(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newSpinnerModel(label, cancel), tea.WithOutput(os.Stderr))

	go func() {
		p.Send(opDoneMsg{err: op(ctx)})
	}()

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("spinner failed: %w", err)
	}
	return final.(spinnerModel).err
}
