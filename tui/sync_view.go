// ABOUTME: TUI progress view for batch sync runs
// ABOUTME: Streams per-record results over a channel into a bubbletea model
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadsync/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	skipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// maxVisibleResults bounds the scrollback shown under the counter.
const maxVisibleResults = 10

// ResultMsg carries one finished record into the view.
type ResultMsg struct {
	Done   int
	Total  int
	Result models.SyncResult
}

// DoneMsg ends the run and quits the program.
type DoneMsg struct {
	Summary models.BatchSummary
}

// Model renders a running batch.
type Model struct {
	spinner  spinner.Model
	events   <-chan tea.Msg
	done     int
	total    int
	recent   []models.SyncResult
	finished bool
	summary  models.BatchSummary
}

// NewModel builds a progress view fed by events. The producer sends
// ResultMsg per record and a final DoneMsg.
func NewModel(total int, events <-chan tea.Msg) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	return Model{spinner: s, events: events, total: total}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

// waitForEvent blocks on the producer channel and replays whatever
// arrives as the next message.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.events
		if !ok {
			return nil
		}
		return msg
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case ResultMsg:
		m.done = msg.Done
		m.total = msg.Total
		m.recent = append(m.recent, msg.Result)
		if len(m.recent) > maxVisibleResults {
			m.recent = m.recent[len(m.recent)-maxVisibleResults:]
		}
		return m, m.waitForEvent()

	case DoneMsg:
		m.finished = true
		m.summary = msg.Summary
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Syncing Apollo → Zoho"))
	s.WriteString("\n\n")

	if m.finished {
		s.WriteString(okStyle.Render(fmt.Sprintf("✓ Done: %d synced", m.summary.Succeeded)))
		if m.summary.Failed > 0 {
			s.WriteString(errStyle.Render(fmt.Sprintf(", %d failed", m.summary.Failed)))
		}
		if m.summary.Skipped > 0 {
			s.WriteString(skipStyle.Render(fmt.Sprintf(", %d skipped", m.summary.Skipped)))
		}
		s.WriteString("\n")
	} else {
		s.WriteString(fmt.Sprintf("%s %d/%d records\n", m.spinner.View(), m.done, m.total))
	}
	s.WriteString("\n")

	for _, result := range m.recent {
		s.WriteString("  ")
		s.WriteString(renderResult(result))
		s.WriteString("\n")
	}

	if !m.finished {
		s.WriteString("\n")
		s.WriteString(mutedStyle.Render("q: quit"))
	}

	return s.String()
}

func renderResult(result models.SyncResult) string {
	switch {
	case result.Skipped:
		return skipStyle.Render(fmt.Sprintf("- %s already synced", result.SourceID))
	case result.Success && result.WasUpdate:
		return okStyle.Render(fmt.Sprintf("✓ %s updated (%s)", result.SourceID, result.ZohoID))
	case result.Success:
		return okStyle.Render(fmt.Sprintf("✓ %s created (%s)", result.SourceID, result.ZohoID))
	default:
		return errStyle.Render(fmt.Sprintf("✗ %s failed: %s", result.SourceID, result.Error))
	}
}
