package ui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"testdeck/internal/datatable"
	"testdeck/internal/model"
	"testdeck/internal/util"
)

// DetailModel shows every field of one record in a scrollable panel.
type DetailModel struct {
	screen   model.Screen
	id       int64
	record   map[string]any
	viewport viewport.Model
}

// NewDetailModel creates a detail screen for a loaded record.
func NewDetailModel(screen model.Screen, id int64, record map[string]any) *DetailModel {
	return &DetailModel{
		screen:   screen,
		id:       id,
		record:   record,
		viewport: viewport.New(0, 0),
	}
}

// Title is the record's human name for the breadcrumb.
func (m *DetailModel) Title() string {
	for _, k := range []string{"code", "name", "username", "key", "email"} {
		if v, ok := m.record[k]; ok && v != nil {
			return util.Stringify(v)
		}
	}
	return "#" + util.Stringify(m.id)
}

// CopyText is what the copy key puts on the clipboard.
func (m *DetailModel) CopyText() string {
	for _, k := range []string{"code", "key", "email"} {
		if v, ok := m.record[k]; ok && v != nil {
			return util.Stringify(v)
		}
	}
	return util.Stringify(m.id)
}

// SetSize lays the panel out for the available area.
func (m *DetailModel) SetSize(width, height int) {
	m.viewport.Width = max(10, width-8)
	m.viewport.Height = max(3, height-4)
	m.viewport.SetContent(m.renderFields(m.viewport.Width))
}

// Update scrolls the panel.
func (m *DetailModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return cmd
}

// View renders the detail panel.
func (m *DetailModel) View(width, height int) string {
	if m.viewport.Width == 0 {
		m.SetSize(width, height)
	}
	scroll := HelpDescStyle.Render(util.Stringify(int(m.viewport.ScrollPercent()*100)) + "%")
	header := lipgloss.NewStyle().
		Width(width - 4).
		Align(lipgloss.Right).
		Render(HelpDescStyle.Render("y copy  h back  ") + scroll)

	info := PanelStyle.
		Width(width - 4).
		Render(m.viewport.View())
	return lipgloss.JoinVertical(lipgloss.Left, header, info)
}

// fieldOrder puts identifying fields first and timestamps last.
func fieldOrder(keys []string) []string {
	rank := func(k string) int {
		switch {
		case k == "id":
			return 0
		case k == "code" || k == "key" || k == "name" || k == "username" || k == "title":
			return 1
		case strings.HasSuffix(k, "_at") || strings.HasSuffix(k, "_on"):
			return 3
		default:
			return 2
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func formatField(key string, value any) string {
	if value == nil {
		return util.Placeholder
	}
	if strings.HasSuffix(key, "_at") || strings.HasSuffix(key, "_on") {
		if _, ok := util.ParseDate(value); ok {
			return util.FormatDate(value) + HelpDescStyle.Render("  ("+util.FormatDateHuman(value)+")")
		}
	}
	return util.Stringify(value)
}

func (m *DetailModel) renderFields(width int) string {
	keys := make([]string, 0, len(m.record))
	labelWidth := 0
	for k := range m.record {
		keys = append(keys, k)
		labelWidth = max(labelWidth, len(datatable.Column{Key: k}.HeaderLabel()))
	}

	lines := make([]string, 0, len(keys))
	for _, k := range fieldOrder(keys) {
		label := datatable.Column{Key: k}.HeaderLabel()
		value := formatField(k, m.record[k])
		row := LabelStyle.Render(label+":") + strings.Repeat(" ", labelWidth-len(label)+2) + NormalRowStyle.Render(value)
		lines = append(lines, lipgloss.NewStyle().MaxWidth(width).Render(row))
	}
	if len(lines) == 0 {
		return HelpDescStyle.Render("This record has no fields.")
	}
	return strings.Join(lines, "\n")
}
