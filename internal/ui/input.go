package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InputModel is the multi-line prompt editor. Enter submits, Ctrl+J inserts
// a newline, Up/Down walk input history when the cursor is at the edge,
// Ctrl+C cancels.
type InputModel struct {
	textarea   textarea.Model
	history    []string
	historyIdx int
	prompt     string
	value      string
	submitted  bool
	cancelled  bool
	quitting   bool
	maxHeight  int
}

// NewInputModel builds the editor with the given prompt string and prior
// input history, newest last.
func NewInputModel(prompt string, history []string) InputModel {
	ta := textarea.New()
	ta.Prompt = ""
	ta.Placeholder = "(Ctrl+J for newline, Enter to send)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(1)
	ta.SetWidth(80)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	// Enter is submission, not newline.
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	return InputModel{
		textarea:   ta,
		history:    history,
		historyIdx: -1,
		prompt:     prompt,
		maxHeight:  20,
	}
}

func (m *InputModel) adjustHeight() {
	h := m.textarea.LineCount()
	if h > m.maxHeight {
		h = m.maxHeight
	}
	if h < 1 {
		h = 1
	}
	m.textarea.SetHeight(h)
}

func (m InputModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m InputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := msg.Width - 4
		if width < 40 {
			width = 40
		}
		m.textarea.SetWidth(width)
		if h := msg.Height - 5; h >= 5 {
			m.maxHeight = h
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			m.value = m.textarea.Value()
			m.submitted = true
			m.quitting = true
			return m, tea.Quit

		case "ctrl+j":
			m.textarea.InsertString("\n")
			m.adjustHeight()
			return m, nil

		case "ctrl+c":
			m.cancelled = true
			m.quitting = true
			return m, tea.Quit

		case "esc":
			m.textarea.SetValue("")
			m.historyIdx = -1
			m.adjustHeight()
			return m, nil

		case "up":
			if m.atHistoryEdge(true) && m.historyIdx < len(m.history)-1 {
				m.historyIdx++
				m.recallHistory()
				return m, nil
			}

		case "down":
			if m.atHistoryEdge(false) && m.historyIdx >= 0 {
				m.historyIdx--
				if m.historyIdx < 0 {
					m.textarea.SetValue("")
					m.adjustHeight()
				} else {
					m.recallHistory()
				}
				return m, nil
			}
		}
	}

	before := m.textarea.Value()
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	// Typing while browsing history detaches from it.
	if m.historyIdx >= 0 && m.textarea.Value() != before {
		m.historyIdx = -1
	}
	m.adjustHeight()
	return m, cmd
}

// atHistoryEdge reports whether an Up (top) or Down (bottom) keypress should
// navigate history rather than move the cursor.
func (m *InputModel) atHistoryEdge(top bool) bool {
	if len(m.history) == 0 {
		return false
	}
	if m.textarea.Value() == "" {
		return true
	}
	if m.historyIdx < 0 {
		return false
	}
	if top {
		return m.textarea.Line() == 0
	}
	return m.textarea.Line() == m.textarea.LineCount()-1
}

func (m *InputModel) recallHistory() {
	m.textarea.SetValue(m.history[len(m.history)-1-m.historyIdx])
	m.adjustHeight()
	m.textarea.CursorEnd()
}

func (m InputModel) View() string {
	if m.quitting {
		return ""
	}
	return m.prompt + "\n" + m.textarea.View()
}

// Value returns the submitted text.
func (m InputModel) Value() string { return m.value }

// Submitted reports whether Enter ended the program.
func (m InputModel) Submitted() bool { return m.submitted }

// Cancelled reports whether Ctrl+C ended the program.
func (m InputModel) Cancelled() bool { return m.cancelled }

// LoadHistory reads input history; entries are NUL separated so multi-line
// prompts round-trip.
func LoadHistory(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var history []string
	for _, entry := range strings.Split(string(data), "\x00") {
		if strings.TrimSpace(entry) != "" {
			history = append(history, entry)
		}
	}
	return history, nil
}

// SaveHistory writes input history, keeping the most recent entries.
func SaveHistory(path string, history []string) error {
	const maxHistory = 1000
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	return os.WriteFile(path, []byte(strings.Join(history, "\x00")), 0o644)
}
