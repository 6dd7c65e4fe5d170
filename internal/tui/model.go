// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-12

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Brand color
var (
	primaryColor = lipgloss.Color("#ff7300")
	subtleColor  = lipgloss.Color("#626262")
	successColor = lipgloss.Color("#04B575")
	warnColor    = lipgloss.Color("#E5C07B")
	errorColor   = lipgloss.Color("#FF0000")

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			MarginBottom(1)

	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	activePhaseStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(successColor)

	skipStyle = lipgloss.NewStyle().
			Foreground(warnColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

// Item outcomes reported in ProgressMsg.Status.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// idleTimeout ends the view when no progress arrives for this long.
const idleTimeout = 5 * time.Minute

// ProgressMsg reports one processed artifact.
type ProgressMsg struct {
	Phase      string
	Done       int
	Total      int
	ArtifactID int
	Status     string
	Message    string
}

// ResultMsg indicates the final result.
type ResultMsg struct {
	Success bool
	Output  string
}

type phaseState struct {
	done, total         int
	ok, skipped, failed int
}

// Model for the TUI.
type Model struct {
	spinner     spinner.Model
	bar         progress.Model
	phases      []string
	current     int
	state       map[string]*phaseState
	logs        []string
	quitting    bool
	interrupted bool
	output      string
	updates     <-chan ProgressMsg
}

// NewModel creates a view over the given phases, fed by updates. Closing
// the channel ends the view.
func NewModel(phases []string, updates <-chan ProgressMsg) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	state := make(map[string]*phaseState, len(phases))
	for _, p := range phases {
		state[p] = &phaseState{}
	}

	return Model{
		spinner: s,
		bar:     progress.New(progress.WithGradient("#ff7300", "#04B575"), progress.WithWidth(40)),
		phases:  phases,
		state:   state,
		updates: updates,
	}
}

// Interrupted reports whether the user quit before the work finished.
func (m Model) Interrupted() bool {
	return m.interrupted
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waitForActivity(),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			m.interrupted = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ProgressMsg:
		ps, ok := m.state[msg.Phase]
		if !ok {
			ps = &phaseState{}
			m.state[msg.Phase] = ps
			m.phases = append(m.phases, msg.Phase)
		}
		ps.done, ps.total = msg.Done, msg.Total
		switch msg.Status {
		case StatusOK:
			ps.ok++
		case StatusSkipped:
			ps.skipped++
		case StatusFailed:
			ps.failed++
		}

		for i, p := range m.phases {
			if p == msg.Phase {
				m.current = i
				break
			}
		}

		if msg.Status != StatusOK || msg.Message != "" {
			m.logs = append(m.logs, fmt.Sprintf("[%s] %s #%d %s %s",
				time.Now().Format("15:04:05"), msg.Phase, msg.ArtifactID, msg.Status, msg.Message))
		}
		return m, m.waitForActivity()

	case ResultMsg:
		m.output = msg.Output
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg, ok := <-m.updates:
			if !ok {
				return ResultMsg{Success: true}
			}
			return msg
		case <-time.After(idleTimeout):
			return ResultMsg{
				Success: false,
				Output:  "no progress reported, leaving the progress view",
			}
		}
	}
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		if m.output != "" {
			return m.output + "\n"
		}
		return ""
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("Tuleap Migration"))
	s.WriteString("\n\n")

	for i, phase := range m.phases {
		ps := m.state[phase]

		prefix := "  "
		style := phaseStyle
		switch {
		case ps.total > 0 && ps.done >= ps.total:
			prefix = "✓ "
			style = doneStyle
		case i == m.current:
			prefix = m.spinner.View() + " "
			style = activePhaseStyle
		}

		pct := 0.0
		if ps.total > 0 {
			pct = float64(ps.done) / float64(ps.total)
		}

		s.WriteString(style.Render(fmt.Sprintf("%s%-10s", prefix, phase)))
		s.WriteString(" " + m.bar.ViewAs(pct))
		s.WriteString(fmt.Sprintf(" %d/%d  ", ps.done, ps.total))
		s.WriteString(doneStyle.Render(fmt.Sprintf("%d ok", ps.ok)) + "  ")
		s.WriteString(skipStyle.Render(fmt.Sprintf("%d skipped", ps.skipped)) + "  ")
		s.WriteString(errorStyle.Render(fmt.Sprintf("%d failed", ps.failed)))
		s.WriteString("\n")
	}

	s.WriteString("\nLog:\n")
	// Show last 5 entries
	start := 0
	if len(m.logs) > 5 {
		start = len(m.logs) - 5
	}
	for _, log := range m.logs[start:] {
		s.WriteString(lipgloss.NewStyle().Foreground(subtleColor).Render(log) + "\n")
	}

	s.WriteString(lipgloss.NewStyle().Foreground(subtleColor).Render("\nPress q to stop\n"))

	return s.String()
}
