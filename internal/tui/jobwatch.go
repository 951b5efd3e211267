package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// JobStatusMsg is one polled snapshot of a Job Engine job's row, sent by
// the issuebotctl `jobs watch` command's poll loop.
type JobStatusMsg struct {
	Found    bool
	Done     bool // job row no longer exists: TickDone deleted it
	JobType  string
	Progress string // opaque Data blob, pretty-printed by the poller
	Err      error
}

// JobWatchModel renders the live progress of a single Job Engine job,
// adapted from Model's spinner/log-tail shape (same styles, same
// "q to quit" affordance) but watching one polled row instead of a
// channel of pipeline step events.
type JobWatchModel struct {
	spinner    spinner.Model
	jobID      int64
	last       JobStatusMsg
	logs       []string
	quitting   bool
	statusChan <-chan JobStatusMsg
}

// NewJobWatchModel creates a job-watch TUI model for jobID, fed by
// statusChan.
func NewJobWatchModel(jobID int64, statusChan <-chan JobStatusMsg) JobWatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return JobWatchModel{
		spinner:    s,
		jobID:      jobID,
		statusChan: statusChan,
	}
}

// Init implements tea.Model.
func (m JobWatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForActivity())
}

// Update implements tea.Model.
func (m JobWatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case JobStatusMsg:
		m.last = msg
		m.logs = append(m.logs, fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), describe(msg)))
		if msg.Done || msg.Err != nil {
			m.quitting = true
			return m, tea.Quit
		}
		return m, m.waitForActivity()
	}

	return m, nil
}

func describe(msg JobStatusMsg) string {
	switch {
	case msg.Err != nil:
		return fmt.Sprintf("poll error: %v", msg.Err)
	case msg.Done:
		return "job complete"
	case !msg.Found:
		return "waiting for job to appear..."
	default:
		return fmt.Sprintf("%s: %s", msg.JobType, msg.Progress)
	}
}

func (m JobWatchModel) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.statusChan
		if !ok {
			return JobStatusMsg{Done: true}
		}
		return msg
	}
}

// View implements tea.Model.
func (m JobWatchModel) View() string {
	if m.quitting {
		if m.last.Err != nil {
			return errorStepStyle.Render(fmt.Sprintf("job %d: %v\n", m.jobID, m.last.Err))
		}
		return doneStepStyle.Render(fmt.Sprintf("job %d: done\n", m.jobID))
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf("Watching job %d", m.jobID)))
	s.WriteString("\n\n")
	s.WriteString(m.spinner.View())
	s.WriteString(" ")
	s.WriteString(describe(m.last))
	s.WriteString("\n\nLogs:\n")

	start := 0
	if len(m.logs) > 5 {
		start = len(m.logs) - 5
	}
	for _, log := range m.logs[start:] {
		s.WriteString(lipgloss.NewStyle().Foreground(subtleColor).Render(log) + "\n")
	}

	s.WriteString(lipgloss.NewStyle().Foreground(subtleColor).Render("\nPress q to quit\n"))
	return s.String()
}
