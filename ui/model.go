package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/drake/beatclock/ui/style"
)

const (
	defaultScrollback = 2000
	defaultHistory    = 200
)

// Model is the main Bubble Tea model for the TUI: a transport bar, the
// scrollback and a command line.
type Model struct {
	input     textinput.Model
	inputChan chan<- string
	styles    style.Styles

	// Scrollback, oldest first
	lines      []string
	lineLimit  int
	transport  Transport
	hasClock   bool
	dropNotice bool

	// History state
	history      []string
	historyIndex int    // -1 = draft, 0..n = history position
	historyLimit int    // Max history entries
	historyDraft string // Preserved when browsing history

	width, height int
	quitting      bool
}

// NewModel creates a model that sends entered lines to inputChan.
func NewModel(inputChan chan<- string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 0 // No limit
	ti.Width = 80
	ti.Focus()

	s := style.DefaultStyles()
	ti.PromptStyle = s.InputPrompt

	return Model{
		input:        ti,
		inputChan:    inputChan,
		styles:       s,
		lineLimit:    defaultScrollback,
		historyIndex: -1,
		historyLimit: defaultHistory,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	// Window size
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 1)
		return m, nil

	case PrintMsg:
		m.appendLines(string(msg))
		return m, nil

	case EchoMsg:
		m.appendLines(m.styles.Echo.Render("> " + string(msg)))
		return m, nil

	case TransportMsg:
		m.transport = Transport(msg)
		m.hasClock = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true
			return m, tea.Quit
		}
		m.resetInput()
		return m, nil

	case tea.KeyEsc:
		m.resetInput()
		return m, nil

	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		m.resetInput()
		if text == "" {
			return m, nil
		}
		m.addToHistory(text)
		select {
		case m.inputChan <- text:
		default:
			m.appendLines(m.styles.Error.Render("input dropped: session busy"))
		}
		return m, nil

	case tea.KeyUp:
		m.historyUp()
		return m, nil

	case tea.KeyDown:
		m.historyDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderTransport())
	b.WriteByte('\n')

	// Transport bar and input line take one row each.
	rows := m.height - 2
	if m.height == 0 {
		rows = len(m.lines)
	}
	visible := m.lines
	if rows >= 0 && len(visible) > rows {
		visible = visible[len(visible)-rows:]
	}
	for i := 0; i < rows-len(visible); i++ {
		b.WriteByte('\n')
	}
	for _, line := range visible {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteString(m.input.View())
	return b.String()
}

func (m Model) renderTransport() string {
	if !m.hasClock {
		return m.styles.Transport.Render(fit("beatclock", m.width))
	}
	return m.styles.Transport.Render(fit(m.transport.String(), m.width))
}

// Lines returns the scrollback, oldest first.
func (m Model) Lines() []string { return m.lines }

func (m *Model) appendLines(text string) {
	m.lines = append(m.lines, strings.Split(text, "\n")...)
	if len(m.lines) > m.lineLimit {
		m.lines = m.lines[len(m.lines)-m.lineLimit:]
	}
}

func (m *Model) resetInput() {
	m.input.SetValue("")
	m.historyIndex = -1
	m.historyDraft = ""
}

func (m *Model) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(m.history) > 0 && m.history[len(m.history)-1] == cmd {
		return
	}
	m.history = append(m.history, cmd)
	if len(m.history) > m.historyLimit {
		m.history = m.history[len(m.history)-m.historyLimit:]
	}
}

func (m *Model) historyUp() {
	if len(m.history) == 0 {
		return
	}
	if m.historyIndex == -1 {
		m.historyDraft = m.input.Value()
		m.historyIndex = len(m.history) - 1
	} else if m.historyIndex > 0 {
		m.historyIndex--
	}
	m.input.SetValue(m.history[m.historyIndex])
	m.input.CursorEnd()
}

func (m *Model) historyDown() {
	if m.historyIndex == -1 {
		return // Already at draft
	}
	if m.historyIndex < len(m.history)-1 {
		m.historyIndex++
		m.input.SetValue(m.history[m.historyIndex])
	} else {
		m.historyIndex = -1
		m.input.SetValue(m.historyDraft)
	}
	m.input.CursorEnd()
}
