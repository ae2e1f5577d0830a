package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"

	"secureshred/internal/job"
)

const statusLines = 6

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	latestStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("78")).Bold(true)
)

type progressMsg int
type statusMsg string
type progressClosedMsg struct{}
type statusClosedMsg struct{}
type doneMsg job.Outcome

type model struct {
	stream *job.Stream
	cancel context.CancelFunc
	title  string

	bar     progress.Model
	percent int
	lines   []string

	progressClosed bool
	statusClosed   bool
	stopping       bool
	outcome        *job.Outcome
}

func newModel(s *job.Stream, cancel context.CancelFunc, title string) model {
	return model{
		stream: s,
		cancel: cancel,
		title:  title,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.waitProgress(), m.waitStatus())
}

func (m model) waitProgress() tea.Cmd {
	return func() tea.Msg {
		p, ok := <-m.stream.Progress
		if !ok {
			return progressClosedMsg{}
		}
		return progressMsg(p)
	}
}

func (m model) waitStatus() tea.Cmd {
	return func() tea.Msg {
		s, ok := <-m.stream.Status
		if !ok {
			return statusClosedMsg{}
		}
		return statusMsg(s)
	}
}

// waitDone is only issued once both event streams are drained so no status
// line is lost behind the final outcome.
func (m model) waitDone() tea.Cmd {
	return func() tea.Msg {
		return doneMsg(<-m.stream.Done)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.stopping && m.cancel != nil {
				m.stopping = true
				m.cancel()
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		w := msg.Width - 10
		if w > 80 {
			w = 80
		}
		if w < 10 {
			w = 10
		}
		m.bar.Width = w
		return m, nil
	case progressMsg:
		if int(msg) > m.percent {
			m.percent = int(msg)
		}
		return m, m.waitProgress()
	case statusMsg:
		m.lines = append(m.lines, string(msg))
		return m, m.waitStatus()
	case progressClosedMsg:
		m.progressClosed = true
		return m, m.maybeDone()
	case statusClosedMsg:
		m.statusClosed = true
		return m, m.maybeDone()
	case doneMsg:
		o := job.Outcome(msg)
		m.outcome = &o
		return m, tea.Quit
	}
	return m, nil
}

func (m model) maybeDone() tea.Cmd {
	if m.progressClosed && m.statusClosed {
		return m.waitDone()
	}
	return nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(float64(m.percent) / 100))
	b.WriteString("\n\n")

	start := len(m.lines) - statusLines
	if start < 0 {
		start = 0
	}
	for i, line := range m.lines[start:] {
		if start+i == len(m.lines)-1 {
			b.WriteString(latestStyle.Render(line))
		} else {
			b.WriteString(statusStyle.Render(line))
		}
		b.WriteString("\n")
	}

	switch {
	case m.outcome != nil && m.outcome.Err != nil:
		b.WriteString("\n" + errorStyle.Render(m.outcome.Err.Error()) + "\n")
	case m.outcome != nil:
		style := okStyle
		if m.outcome.Result.Record.Status != job.StatusShredded {
			style = errorStyle
		}
		b.WriteString("\n" + style.Render(m.outcome.Result.Record.Status) + "\n")
	case m.stopping:
		b.WriteString("\n" + helpStyle.Render("stopping after the current file...") + "\n")
	default:
		b.WriteString("\n" + helpStyle.Render(fmt.Sprintf("%d status lines • ctrl+c stops after the current file", len(m.lines))) + "\n")
	}
	return b.String()
}

// RunTUI drives an interactive progress view until the job finishes. cancel
// is invoked when the user asks to stop; the view keeps running until the
// job reports its outcome. The returned lines are every status message.
func RunTUI(s *job.Stream, cancel context.CancelFunc, title string, opts ...tea.ProgramOption) (job.Outcome, []string, error) {
	final, err := tea.NewProgram(newModel(s, cancel, title), opts...).Run()
	if err != nil {
		return job.Outcome{}, nil, err
	}
	m := final.(model)
	if m.outcome == nil {
		return job.Outcome{}, m.lines, errors.New("interface closed before the job finished")
	}
	return *m.outcome, m.lines, nil
}
