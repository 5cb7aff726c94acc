package tui

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
)

type workDoneMsg struct{}

type spinnerModel struct {
	spinner    spinner.Model
	title      string
	start      time.Time
	cancel     func()
	done       bool
	cancelling bool
}

func newSpinnerModel(title string, cancel func()) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StyleHighlight
	return spinnerModel{spinner: s, title: title, start: time.Now(), cancel: cancel}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case workDoneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		// the work owns shutdown; quit once it reports back
		if msg.String() == "ctrl+c" && !m.cancelling {
			m.cancelling = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	status := m.title
	if m.cancelling {
		status = "Cancelling..."
	}
	elapsed := time.Since(m.start).Truncate(time.Second)
	return fmt.Sprintf("%s %s %s\n", m.spinner.View(), status, StyleMuted.Render(elapsed.String()))
}

// RunWithSpinner runs work while a spinner is drawn on stderr. ctrl+c calls
// cancel and keeps waiting for work to return. Without a terminal work runs
// plainly.
func RunWithSpinner(title string, cancel func(), work func()) error {
	if !term.IsTerminal(os.Stderr.Fd()) {
		work()
		return nil
	}

	p := tea.NewProgram(newSpinnerModel(title, cancel), tea.WithOutput(os.Stderr))
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		work()
		p.Send(workDoneMsg{})
	}()
	_, err := p.Run()
	<-finished
	return err
}
