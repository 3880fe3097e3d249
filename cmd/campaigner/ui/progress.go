package ui

import (
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// doneMsg carries the result of the wrapped call back into the program.
type doneMsg struct{ err error }

// progressModel shows a spinner and a label until the call returns.
type progressModel struct {
	spinner spinner.Model
	label   string
	style   lipgloss.Style
	done    bool
	err     error
}

func newProgressModel(label string, styles Styles) progressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Theme.Accent)
	return progressModel{spinner: sp, label: label, style: styles.Muted}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + m.style.Render(m.label) + "\n"
}

// WithSpinner runs fn while a spinner labelled label animates on w. When
// interactive is false fn simply runs. fn's error is returned either way;
// the spinner never hides or replaces it.
func WithSpinner(w io.Writer, interactive bool, label string, styles Styles, fn func() error) error {
	if !interactive {
		return fn()
	}

	p := tea.NewProgram(newProgressModel(label, styles),
		tea.WithOutput(w),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	result := make(chan error, 1)
	go func() {
		err := fn()
		result <- err
		p.Send(doneMsg{err: err})
	}()

	// A program that fails to draw still waits for fn below.
	_, _ = p.Run()
	return <-result
}
