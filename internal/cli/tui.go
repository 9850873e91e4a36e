package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/bpedit/pkg/blueprint"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorFaint)
)

// =============================================================================
// BlueprintListModel - Interactive blueprint selection
// =============================================================================

// bookEntry is one row of the blueprint picker.
type bookEntry struct {
	Index     int
	Label     string
	Entities  int
	Wires     int
	Tiles     int
	Blueprint *blueprint.Blueprint
}

// bookEntries flattens a book depth-first into picker rows.
func bookEntries(book *blueprint.Book) []bookEntry {
	bps := book.Blueprints()
	out := make([]bookEntry, len(bps))
	for i, bp := range bps {
		g := bp.Graph()
		out[i] = bookEntry{
			Index:     i,
			Label:     bp.Meta().Label,
			Entities:  g.EntityCount(),
			Wires:     len(g.Wires()),
			Tiles:     g.TileCount(),
			Blueprint: bp,
		}
	}
	return out
}

// BlueprintListModel is the bubbletea model for picking a blueprint out of a book.
type BlueprintListModel struct {
	Title    string
	Entries  []bookEntry
	Active   int
	Cursor   int
	Selected *bookEntry
	Height   int
	Offset   int
}

// NewBlueprintListModel creates a picker over book, with the cursor on the
// book's active blueprint.
func NewBlueprintListModel(book *blueprint.Book) BlueprintListModel {
	entries := bookEntries(book)
	active := 0
	if bp := book.ActiveBlueprint(); bp != nil {
		for i, e := range entries {
			if e.Blueprint == bp {
				active = i
			}
		}
	}
	m := BlueprintListModel{
		Title:   book.Meta().Label,
		Entries: entries,
		Active:  active,
		Cursor:  active,
		Height:  15,
	}
	m.scroll()
	return m
}

func (m BlueprintListModel) Init() tea.Cmd {
	return nil
}

func (m BlueprintListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Entries)-1 {
				m.Cursor++
			}
		case "home", "g":
			m.Cursor = 0
		case "end", "G":
			m.Cursor = max(len(m.Entries)-1, 0)
		case "enter":
			if len(m.Entries) == 0 {
				return m, nil
			}
			e := m.Entries[m.Cursor]
			m.Selected = &e
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	m.scroll()
	return m, nil
}

func (m *BlueprintListModel) scroll() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m BlueprintListModel) View() string {
	var b strings.Builder

	title := m.Title
	if title == "" {
		title = "Blueprint book"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Entries))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		e := m.Entries[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		label := e.Label
		if label == "" {
			label = "-"
		}
		if i == m.Active {
			label += " *"
		}
		rows = append(rows, []string{cursor, strconv.Itoa(e.Index), label,
			strconv.Itoa(e.Entities), strconv.Itoa(e.Wires), strconv.Itoa(e.Tiles)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorMuted).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorFaint)).
		Headers("", "#", "Label", "Entities", "Wires", "Tiles").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			switch {
			case idx == m.Cursor:
				return lipgloss.NewStyle().Foreground(colorOK).Bold(true)
			case col >= 3:
				return lipgloss.NewStyle().Foreground(colorFaint)
			}
			return lipgloss.NewStyle().Foreground(colorText)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Entries))))

	return b.String()
}
