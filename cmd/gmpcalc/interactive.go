package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/gmp-native/ctypes"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	settingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// historySize bounds the entries kept on screen.
const historySize = 20

type entry struct {
	err    error
	line   string
	result string
}

type interactiveModel struct {
	ev      *evaluator
	backend string
	input   textinput.Model
	history []entry
	recall  int
	busy    bool
	base    int
	prec    ctypes.BitCount
}

type evalMsg struct {
	entry
	base int
	prec ctypes.BitCount
}

func newInteractiveModel(be *backend, ev *evaluator) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "int 0x7fffffffffffffffff"
	ti.Prompt = promptStyle.Render("gmp> ")
	ti.Width = 60
	ti.Focus()
	return &interactiveModel{ev: ev, backend: be.name, input: ti, base: ev.base, prec: ev.prec}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if m.busy || line == "" {
				return m, nil
			}
			if line == "quit" || line == "exit" {
				return m, tea.Quit
			}
			m.busy = true
			m.input.Reset()
			m.recall = len(m.history)
			return m, m.evaluate(line)

		case "up":
			if m.recall > 0 {
				m.recall--
				m.input.SetValue(m.history[m.recall].line)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.recall < len(m.history)-1 {
				m.recall++
				m.input.SetValue(m.history[m.recall].line)
				m.input.CursorEnd()
			} else {
				m.recall = len(m.history)
				m.input.Reset()
			}
			return m, nil
		}

	case evalMsg:
		m.busy = false
		m.base, m.prec = msg.base, msg.prec
		m.history = append(m.history, msg.entry)
		if len(m.history) > historySize {
			m.history = m.history[len(m.history)-historySize:]
		}
		m.recall = len(m.history)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// evaluate runs line off the UI goroutine. Only the command reads or
// writes the evaluator; busy keeps a second one from starting.
func (m *interactiveModel) evaluate(line string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.ev.eval(context.Background(), line)
		return evalMsg{
			entry: entry{line: line, result: result, err: err},
			base:  m.ev.base,
			prec:  m.ev.prec,
		}
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("GMP Calculator"))
	b.WriteString(" ")
	b.WriteString(m.backend)
	b.WriteString(" ")
	b.WriteString(settingStyle.Render(fmt.Sprintf("base %d • prec %d", m.base, m.prec)))
	b.WriteString("\n\n")

	for _, e := range m.history {
		b.WriteString(helpStyle.Render("gmp> " + e.line))
		b.WriteString("\n")
		if e.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", e.err)))
		} else if e.result != "" {
			b.WriteString(resultStyle.Render(e.result))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	if m.busy {
		b.WriteString(helpStyle.Render("running..."))
	} else {
		b.WriteString(helpStyle.Render("enter run • ↑/↓ history • help commands • esc quit"))
	}
	return b.String()
}

func runInteractive(be *backend, ev *evaluator) error {
	p := tea.NewProgram(newInteractiveModel(be, ev), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
