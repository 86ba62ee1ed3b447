package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/recon/model"
)

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")) // Mauve
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))            // Green
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))           // Orange
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))           // Red
	pathStyle    = lipgloss.NewStyle()
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// Runner is the work the spinner waits on.
type Runner interface {
	Execute(ctx context.Context) (model.Summary, error)
}

// StackTracer is implemented by errors that carry a stack trace.
type StackTracer interface {
	error
	StackTrace() []byte
}

// --- Messages ---
type summaryMsg struct {
	model.Summary
	err error
}

type progressMsg struct{ current, total int }

// --- Model ---
type Model struct {
	ctx     context.Context
	runner  Runner
	spinner spinner.Model
	state   state
	summary model.Summary
	err     error
	program *tea.Program
	current int
	total   int
}

type state int

const (
	stateProcessing state = iota
	stateSummary
	stateError
)

func New(ctx context.Context, runner Runner) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &Model{
		ctx:     ctx,
		runner:  runner,
		spinner: s,
		state:   stateProcessing,
	}
}

// SetProgram lets progress callbacks reach the running program.
func (m *Model) SetProgram(p *tea.Program) {
	m.program = p
}

// Progress reports progress from outside the program loop.
func (m *Model) Progress(current, total int) {
	if m.program != nil {
		m.program.Send(progressMsg{current: current, total: total})
	}
}

// Err returns the error the run ended with, if any.
func (m *Model) Err() error {
	return m.err
}

// Summary returns the summary of a successful run.
func (m *Model) Summary() model.Summary {
	return m.summary
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case progressMsg:
		m.current, m.total = msg.current, msg.total

	case summaryMsg:
		m.summary = msg.Summary
		m.err = msg.err
		m.state = stateSummary
		if msg.err != nil {
			m.state = stateError
		}
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		if m.state == stateProcessing {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m *Model) View() string {
	switch m.state {
	case stateProcessing:
		if m.total > 0 {
			return fmt.Sprintf("%s Writing files [%d/%d]...", m.spinner.View(), m.current, m.total)
		}
		return fmt.Sprintf("%s Processing...", m.spinner.View())
	case stateError:
		var b strings.Builder
		if len(m.summary.Failed) > 0 {
			b.WriteString(m.renderSummary())
			b.WriteString("\n")
		}
		b.WriteString(errorStyle.Render("Error: ", m.err.Error()))
		b.WriteString("\n")
		return b.String()
	case stateSummary:
		return m.renderSummary()
	default:
		return ""
	}
}

func (m *Model) renderSummary() string {
	var b strings.Builder

	if m.summary.Message != "" {
		b.WriteString(headerStyle.Render(m.summary.Message))
		b.WriteString("\n")
		if m.summary.Strategy != "" {
			b.WriteString(faintStyle.Render("extracted via " + m.summary.Strategy))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	hasContent := false
	section := func(title string, style lipgloss.Style, files []string) {
		if len(files) == 0 {
			return
		}
		hasContent = true
		b.WriteString(style.Render(title))
		b.WriteString("\n")
		for _, f := range files {
			b.WriteString(fmt.Sprintf("  %s\n", pathStyle.Render(f)))
		}
	}
	section("Created:", successStyle, m.summary.Created)
	section("Modified:", successStyle, m.summary.Modified)
	section("Deleted:", warnStyle, m.summary.Deleted)
	section("Failed:", errorStyle, m.summary.Failed)

	for _, p := range m.summary.Previews {
		b.WriteString("\n")
		b.WriteString(renderDiff(p))
	}

	if !hasContent && m.summary.Message == "" {
		b.WriteString(faintStyle.Render("Nothing to do."))
		b.WriteString("\n")
	}

	return b.String()
}

func renderDiff(diff string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			b.WriteString(headerStyle.Render(line))
		case strings.HasPrefix(line, "+"):
			b.WriteString(successStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(errorStyle.Render(line))
		default:
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) run() tea.Msg {
	summary, err := m.runner.Execute(m.ctx)
	return summaryMsg{Summary: summary, err: err}
}

// Stack returns the stack trace carried by err, if any.
func Stack(err error) []byte {
	var st StackTracer
	if errors.As(err, &st) {
		return st.StackTrace()
	}
	return nil
}
