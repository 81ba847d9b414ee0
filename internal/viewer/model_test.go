package viewer

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer renders any line containing "35=" as a two line tree and
// counts calls per line.
type fakeRenderer struct {
	calls map[string]int
}

func (f *fakeRenderer) Render(line string) []string {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[line]++
	if !strings.Contains(line, "35=") {
		return []string{}
	}
	return []string{"+--Line = " + line, "*--Extra[999] = x"}
}

func testLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		if i%2 == 0 {
			lines[i] = "8=FIX.4.4|35=D|11=" + strings.Repeat("x", i) + "|"
		} else {
			lines[i] = "heartbeat"
		}
	}
	return lines
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "pgdown":
		return tea.KeyMsg{Type: tea.KeyPgDown}
	case "pgup":
		return tea.KeyMsg{Type: tea.KeyPgUp}
	case "home":
		return tea.KeyMsg{Type: tea.KeyHome}
	case "end":
		return tea.KeyMsg{Type: tea.KeyEnd}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(keyMsg(k))
	}
	return cmd
}

func TestNavigation(t *testing.T) {
	m := New(testLines(50), &fakeRenderer{}, "test.log")
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 22})
	require.Equal(t, 10, m.listHeight)

	press(m, "down", "j")
	assert.Equal(t, 2, m.Cursor())

	press(m, "up", "k", "k")
	assert.Equal(t, 0, m.Cursor(), "cursor stops at the first line")

	press(m, "pgdown")
	assert.Equal(t, 10, m.Cursor())
	assert.Equal(t, 1, m.offset)

	press(m, "pgup")
	assert.Equal(t, 0, m.Cursor())
	assert.Equal(t, 0, m.offset)

	press(m, "end")
	assert.Equal(t, 49, m.Cursor())
	assert.Equal(t, 40, m.offset)

	press(m, "down")
	assert.Equal(t, 49, m.Cursor(), "cursor stops at the last line")

	press(m, "home")
	assert.Equal(t, 0, m.Cursor())

	press(m, "G", "g")
	assert.Equal(t, 0, m.Cursor())
}

func TestQuitKeys(t *testing.T) {
	for _, k := range []string{"esc", "q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			m := New(testLines(3), &fakeRenderer{}, "")
			cmd := press(m, k)
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestSelectedTreeIsCached(t *testing.T) {
	r := &fakeRenderer{}
	lines := testLines(4)
	m := New(lines, r, "")

	assert.Equal(t, []string{"+--Line = " + lines[0], "*--Extra[999] = x"}, m.Selected())
	press(m, "down", "up", "down", "up")
	assert.Equal(t, 1, r.calls[lines[0]])
	assert.Equal(t, 1, r.calls[lines[1]])

	press(m, "down")
	assert.Empty(t, m.Selected())
	assert.Contains(t, m.View(), "no FIX message on this line")
}

func TestResizeKeepsCursorVisible(t *testing.T) {
	m := New(testLines(40), &fakeRenderer{}, "")
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 42})
	press(m, "end")
	require.Equal(t, 39, m.Cursor())

	m.Update(tea.WindowSizeMsg{Width: 80, Height: 12})
	assert.Equal(t, 5, m.listHeight)
	assert.Equal(t, 5, m.detail.Height)
	assert.True(t, m.cursor >= m.offset && m.cursor < m.offset+m.listHeight)

	m.Update(tea.WindowSizeMsg{Width: 10, Height: 1})
	assert.Equal(t, 1, m.listHeight, "tiny terminals still show one row")
}

func TestViewLayout(t *testing.T) {
	lines := testLines(3)
	m := New(lines, &fakeRenderer{}, "session.log")
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 12})

	view := m.View()
	assert.Contains(t, view, "session.log")
	assert.Contains(t, view, "line 1/3")
	assert.Contains(t, view, "+--Line = ")
	assert.Contains(t, view, "heartbeat")

	press(m, "down", "down")
	assert.Contains(t, m.View(), "line 3/3")
}

func TestLinesMsg(t *testing.T) {
	m := New(nil, &fakeRenderer{}, "stdin")
	assert.Nil(t, m.Selected())
	press(m, "down")
	assert.Equal(t, 0, m.Cursor())

	m.Update(LinesMsg{"8=FIX.4.4|35=0|", "noise"})
	assert.Len(t, m.Selected(), 2)
	press(m, "down")
	assert.Equal(t, 1, m.Cursor())
}

func TestWriteTrees(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrees(&buf, []string{"a 35=D", "noise", "b 35=8"}, &fakeRenderer{}))
	assert.Equal(t,
		"a 35=D\n+--Line = a 35=D\n*--Extra[999] = x\n\n"+
			"b 35=8\n+--Line = b 35=8\n*--Extra[999] = x\n\n",
		buf.String())
}
