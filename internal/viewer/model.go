// Package viewer is the terminal UI: a list of log lines on top and the
// rendered FIX tree of the selected line below it.
package viewer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fix-logviewer/backend/internal/models"
	"github.com/fix-logviewer/backend/internal/parser"
)

// LineRenderer turns a log line into rendered tree lines. An empty result
// means the line has nothing to show.
type LineRenderer interface {
	Render(line string) []string
}

// LinesMsg appends lines to the list, for input that is still being read.
type LinesMsg []string

// chromeHeight is the divider plus the status line.
const chromeHeight = 2

type Model struct {
	lines    []string
	renderer LineRenderer
	source   string

	cursor int
	offset int

	width      int
	height     int
	listHeight int

	detail   viewport.Model
	rendered map[int][]string

	keys   KeyMap
	help   help.Model
	styles Styles
}

// New creates a viewer over lines. source labels the status bar.
func New(lines []string, renderer LineRenderer, source string) *Model {
	m := &Model{
		lines:    lines,
		renderer: renderer,
		source:   source,
		detail:   viewport.New(80, 10),
		rendered: make(map[int][]string),
		keys:     DefaultKeyMap(),
		help:     help.New(),
		styles:   NewStyles(),
	}
	m.resize(80, 24)
	return m
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case LinesMsg:
		wasEmpty := len(m.lines) == 0
		m.lines = append(m.lines, msg...)
		if wasEmpty {
			m.refreshDetail()
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.moveTo(m.cursor - 1)
		case key.Matches(msg, m.keys.Down):
			m.moveTo(m.cursor + 1)
		case key.Matches(msg, m.keys.PageUp):
			m.moveTo(m.cursor - m.listHeight)
		case key.Matches(msg, m.keys.PageDown):
			m.moveTo(m.cursor + m.listHeight)
		case key.Matches(msg, m.keys.Home):
			m.moveTo(0)
		case key.Matches(msg, m.keys.End):
			m.moveTo(len(m.lines) - 1)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

// Cursor returns the index of the selected line.
func (m *Model) Cursor() int {
	return m.cursor
}

// Selected returns the rendered tree of the selected line.
func (m *Model) Selected() []string {
	if len(m.lines) == 0 {
		return nil
	}
	return m.renderAt(m.cursor)
}

func (m *Model) moveTo(i int) {
	if len(m.lines) == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i > len(m.lines)-1 {
		i = len(m.lines) - 1
	}
	if i == m.cursor {
		return
	}
	m.cursor = i
	m.scrollToCursor()
	m.refreshDetail()
}

func (m *Model) scrollToCursor() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.listHeight {
		m.offset = m.cursor - m.listHeight + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// resize splits the screen between the list and the detail pane.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	body := height - chromeHeight
	if body < 2 {
		body = 2
	}
	m.listHeight = body / 2
	m.detail.Width = width
	m.detail.Height = body - m.listHeight
	m.help.Width = width

	m.scrollToCursor()
	m.refreshDetail()
}

func (m *Model) renderAt(i int) []string {
	if out, ok := m.rendered[i]; ok {
		return out
	}
	out := m.renderer.Render(m.lines[i])
	m.rendered[i] = out
	return out
}

func (m *Model) refreshDetail() {
	if len(m.lines) == 0 {
		m.detail.SetContent("")
		return
	}

	tree := m.renderAt(m.cursor)
	if len(tree) == 0 {
		m.detail.SetContent(m.styles.Empty.Render("no FIX message on this line"))
		m.detail.GotoTop()
		return
	}

	styled := make([]string, len(tree))
	for i, l := range tree {
		switch marker(l) {
		case models.MarkerUnmatched:
			styled[i] = m.styles.Unmatched.Render(l)
		case models.MarkerBranch:
			styled[i] = m.styles.Branch.Render(l)
		default:
			styled[i] = m.styles.Line.Render(l)
		}
	}
	m.detail.SetContent(strings.Join(styled, "\n"))
	m.detail.GotoTop()
}

func (m *Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderList(),
		m.styles.Divider.Render(strings.Repeat("─", max(m.width, 1))),
		m.detail.View(),
		m.renderStatus(),
	)
}

func (m *Model) renderList() string {
	rows := make([]string, 0, m.listHeight)
	clip := lipgloss.NewStyle().MaxWidth(m.width)
	for i := m.offset; i < len(m.lines) && len(rows) < m.listHeight; i++ {
		line := clip.Render(m.lines[i])
		switch {
		case i == m.cursor:
			line = m.styles.Selected.Render(line)
		case hasMessage(m.lines[i]):
			line = m.styles.Message.Render(line)
		default:
			line = m.styles.Line.Render(line)
		}
		rows = append(rows, line)
	}
	for len(rows) < m.listHeight {
		rows = append(rows, "")
	}
	return strings.Join(rows, "\n")
}

func (m *Model) renderStatus() string {
	pos := 0
	if len(m.lines) > 0 {
		pos = m.cursor + 1
	}
	status := fmt.Sprintf(" %s  line %d/%d  ", m.source, pos, len(m.lines))
	return m.styles.Status.Render(status) + " " + m.help.View(m.keys)
}

// marker returns the first non-blank rune of a rendered line.
func marker(l string) rune {
	for _, r := range l {
		if r != ' ' {
			return r
		}
	}
	return 0
}

func hasMessage(line string) bool {
	_, err := parser.FindMessage(line)
	return err == nil
}
