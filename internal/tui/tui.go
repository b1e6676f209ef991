// Package tui is an interactive browser over one project's conversations.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/claude-story/claude-story/internal/store"
)

type model struct {
	convs    []store.Conversation
	cursor   int
	offset   int
	width    int
	height   int
	selected *store.Conversation
}

// RunList opens the browser and returns the conversation chosen with enter,
// or nil when the user quit without choosing.
func RunList(convs []store.Conversation) (*store.Conversation, error) {
	m := model{convs: convs}
	p := tea.NewProgram(m, tea.WithAltScreen())
	out, err := p.Run()
	if err != nil {
		return nil, err
	}
	return out.(model).selected, nil
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			m.adjustScroll()
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.convs)-1 {
				m.cursor++
			}
			m.adjustScroll()
		case key.Matches(msg, keys.Enter):
			if len(m.convs) > 0 {
				c := m.convs[m.cursor]
				m.selected = &c
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	if m.width == 0 {
		return ""
	}

	listHeight := m.height - 2 // title + status bar
	if listHeight < 1 {
		listHeight = 1
	}

	var b strings.Builder
	b.WriteString(styleTitle.Render("Conversations") + "\n")

	if len(m.convs) == 0 {
		b.WriteString(styleMeta.Render("  (no conversations yet)") + "\n")
	}

	shown := 0
	for i := m.offset; i < len(m.convs) && shown < listHeight; i++ {
		b.WriteString(m.formatLine(i) + "\n")
		shown++
	}
	for ; shown < listHeight; shown++ {
		b.WriteString("\n")
	}

	status := fmt.Sprintf("%d conversations | enter: show | esc: quit", len(m.convs))
	b.WriteString(styleStatusBar.Render(status))
	return b.String()
}

// formatLine renders one row: marker, active flag, update date, title.
func (m model) formatLine(i int) string {
	c := m.convs[i]

	date := c.UpdatedAt
	if len(date) >= 10 {
		date = date[:10]
	}

	flag := " "
	if c.IsActive {
		flag = styleActive.Render("*")
	}

	title := strings.ReplaceAll(c.Title, "\n", " ")
	titleMax := m.width - 2 - 2 - 11 - 2
	if titleMax < 0 {
		titleMax = 0
	}
	if runewidth.StringWidth(title) > titleMax {
		title = runewidth.Truncate(title, titleMax, "")
	}

	line := fmt.Sprintf("%s %s %s", flag, styleMeta.Render(date), title)
	if i == m.cursor {
		return styleListSelected.Render("> ") + line
	}
	return "  " + line
}

// adjustScroll keeps the cursor visible within the viewport.
func (m *model) adjustScroll() {
	visible := m.height - 2
	if visible < 1 {
		visible = 1
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
}
